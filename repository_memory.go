package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository keeps recommendations in a map. It is selected with
// memory:// and backs the service tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]Recommendation
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		byID:   make(map[int64]Recommendation),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, rec Recommendation) (*Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Name == rec.Name {
			return nil, fmt.Errorf("%w: name %q already exists", ErrConflict, rec.Name)
		}
	}
	rec.ID = r.nextID
	r.nextID++
	r.byID[rec.ID] = rec
	return &rec, nil
}

func (r *MemoryRepository) FindByName(ctx context.Context, name string) (*Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.byID {
		if rec.Name == name {
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) FindByID(ctx context.Context, id int64) (*Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) FindAll(ctx context.Context, filter *ScoreFilter) ([]Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := make([]Recommendation, 0, len(r.byID))
	for _, rec := range r.byID {
		if filter == nil || filter.matches(rec.Score) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].ID > recs[j].ID
	})
	return recs, nil
}

func (r *MemoryRepository) GetTopByScore(ctx context.Context, amount int) ([]Recommendation, error) {
	recs, _ := r.FindAll(ctx, nil)
	sortByScore(recs)
	if len(recs) > amount {
		recs = recs[:amount]
	}
	return recs, nil
}

func (r *MemoryRepository) UpdateScore(ctx context.Context, id int64, direction ScoreDirection) (*Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Score += int(direction)
	r.byID[id] = rec
	return &rec, nil
}

func (r *MemoryRepository) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[int64]Recommendation)
	r.nextID = 1
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

// sortByScore orders by score descending, oldest first among equal scores.
func sortByScore(recs []Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].ID < recs[j].ID
	})
}
