package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	initLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open repository")
	}

	service := NewService(repo)
	defer func() {
		if err := service.close(); err != nil {
			log.Error().Err(err).Msg("failed to close repository")
		}
	}()

	if cfg.Database.Seed {
		if err := service.SeedInitial(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to seed recommendations")
		}
	}

	echoRouter := NewHTTPRouter(service, cfg)
	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("env", cfg.Server.Environment).
			Msg("starting http server")
		if err := echoRouter.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := echoRouter.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openRepository picks the storage backend from the scheme of dbURL.
func openRepository(ctx context.Context, dbURL string) (RecommendationRepository, error) {
	// not url.Parse: "sqlite://:memory:" is not a valid URL host
	scheme, location, ok := strings.Cut(dbURL, "://")
	if !ok {
		return nil, fmt.Errorf("database url %q has no scheme", dbURL)
	}

	log.Info().Str("scheme", scheme).Msg("opening repository")
	switch scheme {
	case "postgres", "postgresql":
		return NewPostgresRepository(ctx, dbURL)
	case "sqlite":
		return NewSQLiteRepository(ctx, location)
	case "badger":
		return NewBadgerRepository(location)
	case "memory":
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}
