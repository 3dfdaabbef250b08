package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const recommendationColumns = `id, name, youtube_link, score`

// sqlRepository holds the queries shared by the Postgres and SQLite backends.
// Queries are written with '?' placeholders and rebound per driver.
type sqlRepository struct {
	db                *sqlx.DB
	resetStatements   []string
	isUniqueViolation func(err error) bool
}

func (r *sqlRepository) Create(ctx context.Context, rec Recommendation) (*Recommendation, error) {
	query := r.db.Rebind(`
	  insert into recommendations (name, youtube_link, score)
	  values (?, ?, ?)
	  returning ` + recommendationColumns + `;`)

	created := &Recommendation{}
	err := r.db.QueryRowxContext(ctx, query, rec.Name, rec.YoutubeLink, rec.Score).StructScan(created)
	if err != nil {
		if r.isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: name %q already exists", ErrConflict, rec.Name)
		}
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}
	return created, nil
}

func (r *sqlRepository) FindByName(ctx context.Context, name string) (*Recommendation, error) {
	query := r.db.Rebind(`
	  select ` + recommendationColumns + `
	  from recommendations where name=?;`)
	return r.getOne(ctx, query, name)
}

func (r *sqlRepository) FindByID(ctx context.Context, id int64) (*Recommendation, error) {
	query := r.db.Rebind(`
	  select ` + recommendationColumns + `
	  from recommendations where id=?;`)
	return r.getOne(ctx, query, id)
}

func (r *sqlRepository) FindAll(ctx context.Context, filter *ScoreFilter) ([]Recommendation, error) {
	query := `select ` + recommendationColumns + ` from recommendations`
	args := []interface{}{}
	if filter != nil {
		if filter.Comparison == ScoreGreaterThan {
			query += ` where score > ?`
		} else {
			query += ` where score <= ?`
		}
		args = append(args, filter.Score)
	}
	query += ` order by id desc;`

	recs := make([]Recommendation, 0)
	if err := r.db.SelectContext(ctx, &recs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

func (r *sqlRepository) GetTopByScore(ctx context.Context, amount int) ([]Recommendation, error) {
	query := r.db.Rebind(`
	  select ` + recommendationColumns + `
	  from recommendations
	  order by score desc, id asc
	  limit ?;`)

	// amount comes from the request; the slice grows with the rows found
	recs := make([]Recommendation, 0)
	if err := r.db.SelectContext(ctx, &recs, query, amount); err != nil {
		return nil, fmt.Errorf("top recommendations: %w", err)
	}
	return recs, nil
}

func (r *sqlRepository) UpdateScore(ctx context.Context, id int64, direction ScoreDirection) (*Recommendation, error) {
	query := r.db.Rebind(`
	  update recommendations
	  set score = score + ?
	  where id=?
	  returning ` + recommendationColumns + `;`)
	return r.getOne(ctx, query, int(direction), id)
}

func (r *sqlRepository) Remove(ctx context.Context, id int64) error {
	query := r.db.Rebind(`delete from recommendations where id=?;`)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete recommendation %d: %w", id, err)
	}
	return nil
}

func (r *sqlRepository) Reset(ctx context.Context) error {
	for _, stmt := range r.resetStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset recommendations: %w", err)
		}
	}
	return nil
}

func (r *sqlRepository) Close() error {
	return r.db.Close()
}

func (r *sqlRepository) getOne(ctx context.Context, query string, args ...interface{}) (*Recommendation, error) {
	rec := &Recommendation{}
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query recommendation: %w", err)
	}
	return rec, nil
}

func createTables(ctx context.Context, db *sqlx.DB, tables []string) error {
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
