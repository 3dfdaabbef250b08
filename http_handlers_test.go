package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLink = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Server.Environment = "test"
	cfg.Server.VoteRateLimit = 0
	cfg.Admin.Password = "s3cret"
	cfg.Admin.JWTSecret = "signing-key"
	return cfg
}

func newTestRouter(t *testing.T, cfg Config) (*echo.Echo, *ServiceImpl) {
	t.Helper()
	svc := NewService(NewMemoryRepository())
	return NewHTTPRouter(svc, cfg), svc
}

func doRequest(r *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["message"]
}

func TestInsertHandler(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"valid", `{"name":"Terra","youtubeLink":"` + testLink + `"}`, http.StatusCreated},
		{"duplicate name", `{"name":"Terra","youtubeLink":"https://youtu.be/WyxL_lbo4kM"}`, http.StatusConflict},
		{"short link", `{"name":"Short","youtubeLink":"https://youtu.be/WyxL_lbo4kM"}`, http.StatusCreated},
		{"missing name", `{"youtubeLink":"` + testLink + `"}`, http.StatusUnprocessableEntity},
		{"missing link", `{"name":"No link"}`, http.StatusUnprocessableEntity},
		{"not youtube", `{"name":"Vimeo","youtubeLink":"https://vimeo.com/12345678"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"name":`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodPost, "/recommendations", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
		})
	}

	t.Run("response body", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/recommendations",
			`{"name":"Body","youtubeLink":"`+testLink+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var created Recommendation
		decode(t, rec, &created)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Body", created.Name)
		assert.Equal(t, testLink, created.YoutubeLink)
		assert.Equal(t, 0, created.Score)
	})

	t.Run("validation message names the field", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/recommendations", `{"name":"x","youtubeLink":"nope"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "youtubeLink must be a youtube video link")
	})
}

func TestReadHandlers(t *testing.T) {
	r, svc := newTestRouter(t, testConfig())
	require.NoError(t, svc.SeedDatabase(t.Context()))

	t.Run("list newest first", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/recommendations", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var recs []Recommendation
		decode(t, rec, &recs)
		assert.Equal(t, []string{"Extra", "Terra", "It's a long way"}, names(recs))
	})

	t.Run("by id", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/recommendations/2", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got Recommendation
		decode(t, rec, &got)
		assert.Equal(t, "Terra", got.Name)
	})

	t.Run("by name", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/recommendations/name/Terra", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got Recommendation
		decode(t, rec, &got)
		assert.Equal(t, int64(2), got.ID)
	})

	t.Run("top", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/recommendations/top/2", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var recs []Recommendation
		decode(t, rec, &recs)
		assert.Equal(t, []string{"Terra", "It's a long way"}, names(recs))
	})

	t.Run("random", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/recommendations/random", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got Recommendation
		decode(t, rec, &got)
		assert.Contains(t, []string{"Extra", "Terra", "It's a long way"}, got.Name)
	})

	errorCases := []struct {
		name           string
		target         string
		expectedStatus int
	}{
		{"unknown id", "/recommendations/99", http.StatusNotFound},
		{"non numeric id", "/recommendations/abc", http.StatusUnprocessableEntity},
		{"negative id", "/recommendations/-1", http.StatusUnprocessableEntity},
		{"unknown name", "/recommendations/name/Nope", http.StatusNotFound},
		{"zero top", "/recommendations/top/0", http.StatusUnprocessableEntity},
		{"non numeric top", "/recommendations/top/ten", http.StatusUnprocessableEntity},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.NotEmpty(t, errorMessage(t, rec))
		})
	}
}

func TestTopHandlerHugeAmount(t *testing.T) {
	repo, err := NewSQLiteRepository(t.Context(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	svc := NewService(repo)
	require.NoError(t, svc.SeedDatabase(t.Context()))
	r := NewHTTPRouter(svc, testConfig())

	rec := doRequest(r, http.MethodGet, "/recommendations/top/9223372036854775807", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var recs []Recommendation
	decode(t, rec, &recs)
	assert.Equal(t, []string{"Terra", "It's a long way", "Extra"}, names(recs))
}

func TestPanicIsLoggedAndCounted(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	r.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})

	rec := doRequest(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = doRequest(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`upnext_http_requests_total{method="GET",path="/boom",status="500"} 1`)
}

func TestRandomHandlerEmpty(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	rec := doRequest(r, http.MethodGet, "/recommendations/random", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoteHandlers(t *testing.T) {
	r, svc := newTestRouter(t, testConfig())
	created, err := svc.Insert(t.Context(), "Extra", testLink)
	require.NoError(t, err)

	rec := doRequest(r, http.MethodPost, "/recommendations/1/upvote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var vote VoteResult
	decode(t, rec, &vote)
	assert.Equal(t, VoteResult{ID: created.ID, Score: 1}, vote)

	for i := 0; i < 6; i++ {
		rec = doRequest(r, http.MethodPost, "/recommendations/1/downvote", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	decode(t, rec, &vote)
	assert.Equal(t, VoteResult{ID: created.ID, Score: -5}, vote)

	rec = doRequest(r, http.MethodPost, "/recommendations/1/downvote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &vote)
	assert.Equal(t, VoteResult{ID: created.ID, Score: -6, Removed: true}, vote)

	rec = doRequest(r, http.MethodPost, "/recommendations/1/downvote", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(r, http.MethodPost, "/recommendations/1/upvote", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(r, http.MethodPost, "/recommendations/one/upvote", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestVoteRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.VoteRateLimit = 2
	r, svc := newTestRouter(t, cfg)
	_, err := svc.Insert(t.Context(), "Terra", testLink)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := doRequest(r, http.MethodPost, "/recommendations/1/upvote", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doRequest(r, http.MethodPost, "/recommendations/1/upvote", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are not limited
	rec = doRequest(r, http.MethodGet, "/recommendations/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRemove(t *testing.T) {
	r, svc := newTestRouter(t, testConfig())
	_, err := svc.Insert(t.Context(), "Terra", testLink)
	require.NoError(t, err)

	rec := doRequest(r, http.MethodPost, "/admin/login", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doRequest(r, http.MethodPost, "/admin/login", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(r, http.MethodPost, "/admin/login", `{"password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var login map[string]string
	decode(t, rec, &login)
	token := login["token"]
	require.NotEmpty(t, token)

	rec = doRequest(r, http.MethodDelete, "/recommendations/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(r, http.MethodDelete, "/recommendations/1", "",
		echo.HeaderAuthorization, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(r, http.MethodDelete, "/recommendations/1", "",
		echo.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(r, http.MethodDelete, "/recommendations/1", "",
		echo.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOptionalRoutes(t *testing.T) {
	cfg := defaultConfig()
	r, _ := newTestRouter(t, cfg)

	rec := doRequest(r, http.MethodPost, "/admin/login", `{"password":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(r, http.MethodPost, "/tests/reset-database", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTestSupportRoutes(t *testing.T) {
	r, svc := newTestRouter(t, testConfig())
	_, err := svc.Insert(t.Context(), "Leftover", testLink)
	require.NoError(t, err)

	rec := doRequest(r, http.MethodPost, "/tests/reset-database", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recs, err := svc.Get(t.Context())
	require.NoError(t, err)
	assert.Empty(t, recs)

	rec = doRequest(r, http.MethodPost, "/tests/seed-database", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	recs, err = svc.Get(t.Context())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	rec := doRequest(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "upnext_http_requests_total")
}

func TestRequestID(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	rec := doRequest(r, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
