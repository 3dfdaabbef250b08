package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type SQLiteRepository struct {
	sqlRepository
}

// NewSQLiteRepository opens (or creates) the database file at path.
// ":memory:" gives a private database that lives as long as the repository.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite allows one writer at a time, and every new connection to
	// :memory: is a fresh empty database
	db.SetMaxOpenConns(1)
	log.Info().Str("path", path).Msg("opened sqlite database")

	recommendationsTable := `
	  create table if not exists recommendations (
		id integer primary key autoincrement,
		name text not null unique,
		youtube_link text not null,
		score integer not null default 0
	  );`

	if err := createTables(ctx, db, []string{recommendationsTable}); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{sqlRepository{
		db: db,
		resetStatements: []string{
			`delete from recommendations;`,
			`delete from sqlite_sequence where name='recommendations';`,
		},
		isUniqueViolation: isSQLiteUniqueViolation,
	}}, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
