package main

// this file contains implementation of HTTP handlers - REST API

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type httpHandler struct {
	service Service
	cfg     Config
}

func NewHTTPRouter(service Service, cfg Config) *echo.Echo {
	h := &httpHandler{service: service, cfg: cfg}

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.Validator = newRequestValidator()
	r.HTTPErrorHandler = errorHandler

	r.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	// outside Recover so recovered panics are logged and counted as 500s
	r.Use(requestLogger)
	r.Use(middleware.Recover())
	r.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
	}))

	r.GET("/health", healthCheckHandler)
	r.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	votes := []echo.MiddlewareFunc{}
	if cfg.Server.VoteRateLimit > 0 {
		votes = append(votes, echo.WrapMiddleware(
			httprate.LimitByIP(cfg.Server.VoteRateLimit, cfg.Server.VoteRateWindow)))
	}

	recGroup := r.Group("/recommendations")
	{
		recGroup.POST("", h.insertHandler)
		recGroup.GET("", h.listHandler)
		recGroup.GET("/random", h.randomHandler)
		recGroup.GET("/top/:amount", h.topHandler)
		recGroup.GET("/name/:name", h.byNameHandler)
		recGroup.GET("/:id", h.byIDHandler)
		recGroup.POST("/:id/upvote", h.upvoteHandler, votes...)
		recGroup.POST("/:id/downvote", h.downvoteHandler, votes...)
	}

	if cfg.Admin.Password != "" {
		r.POST("/admin/login", h.loginHandler)
		r.DELETE("/recommendations/:id", h.removeHandler, middleware.JWT([]byte(cfg.Admin.JWTSecret)))
	}

	if cfg.IsTest() {
		testGroup := r.Group("/tests")
		testGroup.POST("/reset-database", h.resetDatabaseHandler)
		testGroup.POST("/seed-database", h.seedDatabaseHandler)
	}

	return r
}

func healthCheckHandler(c echo.Context) error {
	return c.String(http.StatusOK, "I am up and running!")
}

func (h *httpHandler) insertHandler(c echo.Context) error {
	req := CreateRecommendationRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	rec, err := h.service.Insert(c.Request().Context(), req.Name, req.YoutubeLink)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *httpHandler) listHandler(c echo.Context) error {
	recs, err := h.service.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *httpHandler) randomHandler(c echo.Context) error {
	rec, err := h.service.GetRandom(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) topHandler(c echo.Context) error {
	amount, err := strconv.Atoi(c.Param("amount"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "amount must be a positive integer")
	}
	recs, err := h.service.GetTop(c.Request().Context(), amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *httpHandler) byNameHandler(c echo.Context) error {
	rec, err := h.service.FindByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) byIDHandler(c echo.Context) error {
	id, err := recommendationID(c)
	if err != nil {
		return err
	}
	rec, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *httpHandler) upvoteHandler(c echo.Context) error {
	id, err := recommendationID(c)
	if err != nil {
		return err
	}
	rec, err := h.service.Upvote(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, VoteResult{ID: rec.ID, Score: rec.Score})
}

func (h *httpHandler) downvoteHandler(c echo.Context) error {
	id, err := recommendationID(c)
	if err != nil {
		return err
	}
	rec, removed, err := h.service.Downvote(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, VoteResult{ID: rec.ID, Score: rec.Score, Removed: removed})
}

func (h *httpHandler) removeHandler(c echo.Context) error {
	id, err := recommendationID(c)
	if err != nil {
		return err
	}
	if err := h.service.Remove(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *httpHandler) loginHandler(c echo.Context) error {
	req := LoginRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Admin.Password)) != 1 {
		log.Warn().Str("remote", c.RealIP()).Msg("admin login rejected")
		return echo.ErrUnauthorized
	}

	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["role"] = "admin"
	claims["exp"] = time.Now().Add(h.cfg.Admin.TokenTTL).Unix()
	t, err := token.SignedString([]byte(h.cfg.Admin.JWTSecret))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": t,
	})
}

func (h *httpHandler) resetDatabaseHandler(c echo.Context) error {
	if err := h.service.ResetDatabase(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (h *httpHandler) seedDatabaseHandler(c echo.Context) error {
	if err := h.service.SeedDatabase(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func recommendationID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "id must be a positive integer")
	}
	return id, nil
}

// errorHandler turns domain errors into JSON responses of the form
// {"message": "..."}.
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = http.StatusText(code)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	case errors.Is(err, ErrValidation):
		code, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ErrNotFound):
		code, message = http.StatusNotFound, err.Error()
	case errors.Is(err, ErrConflict):
		code, message = http.StatusConflict, err.Error()
	default:
		log.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("request failed")
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"message": message})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}

// requestLogger writes one access log line per request and feeds the HTTP
// metrics. Paths are reported as route patterns to keep label cardinality low.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()
		latency := time.Since(start)
		status := strconv.Itoa(res.Status)

		httpRequestsTotal.WithLabelValues(req.Method, c.Path(), status).Inc()
		httpRequestDuration.WithLabelValues(req.Method, c.Path()).Observe(latency.Seconds())

		log.Info().
			Str("method", req.Method).
			Str("uri", req.RequestURI).
			Int("status", res.Status).
			Dur("latency", latency).
			Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
			Msg("request")
		return nil
	}
}
