package main

import "context"

// RecommendationRepository is the persistence contract behind the service.
// Lookups report a missing record with ErrNotFound; Create reports a duplicate
// name with ErrConflict.
type RecommendationRepository interface {
	Create(ctx context.Context, rec Recommendation) (*Recommendation, error)
	FindByName(ctx context.Context, name string) (*Recommendation, error)
	FindByID(ctx context.Context, id int64) (*Recommendation, error)
	// FindAll returns newest records first. A nil filter returns everything.
	FindAll(ctx context.Context, filter *ScoreFilter) ([]Recommendation, error)
	GetTopByScore(ctx context.Context, amount int) ([]Recommendation, error)
	// UpdateScore moves the score by one step and returns the row as stored
	// after the update.
	UpdateScore(ctx context.Context, id int64, direction ScoreDirection) (*Recommendation, error)
	// Remove is a no-op for a missing id.
	Remove(ctx context.Context, id int64) error
	Reset(ctx context.Context) error
	Close() error
}
