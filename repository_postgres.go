package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(ctx context.Context, dbURL string) (*PostgresRepository, error) {
	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info().Msg("connected to postgres, creating tables")

	// make sure the required tables exist
	// if not then create them
	recommendationsTable := `
	  create table if not exists recommendations (
		id serial primary key,
		name text not null unique,
		youtube_link text not null,
		score integer not null default 0
	  );`
	scoreIndex := `
	  create index if not exists recommendations_score_idx
	  on recommendations (score desc);`

	if err := createTables(ctx, db, []string{recommendationsTable, scoreIndex}); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresRepository{sqlRepository{
		db:                db,
		resetStatements:   []string{`truncate table recommendations restart identity;`},
		isUniqueViolation: isPostgresUniqueViolation,
	}}, nil
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
