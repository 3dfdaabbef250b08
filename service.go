package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
)

const (
	// records strictly above this score form the preferred bucket of GetRandom
	randomScoreThreshold = 10
	// share of GetRandom draws that go to the preferred bucket
	randomHighShare = 0.7
	// a downvote leaving the score below this removes the record
	removalScore = -5
)

type Service interface {
	Insert(ctx context.Context, name, youtubeLink string) (*Recommendation, error)
	Upvote(ctx context.Context, id int64) (*Recommendation, error)
	Downvote(ctx context.Context, id int64) (*Recommendation, bool, error)
	Get(ctx context.Context) ([]Recommendation, error)
	GetByID(ctx context.Context, id int64) (*Recommendation, error)
	GetTop(ctx context.Context, amount int) ([]Recommendation, error)
	GetRandom(ctx context.Context) (*Recommendation, error)
	FindByName(ctx context.Context, name string) (*Recommendation, error)
	Remove(ctx context.Context, id int64) error
	ResetDatabase(ctx context.Context) error
	SeedDatabase(ctx context.Context) error
	SeedInitial(ctx context.Context) error
	close() error
}

// randomSource is satisfied by *rand.Rand, which tests use with a fixed seed.
type randomSource interface {
	Float64() float64
	IntN(n int) int
}

// globalRand uses the goroutine safe top level functions of math/rand/v2.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

type ServiceImpl struct {
	repo RecommendationRepository
	rand randomSource
}

func NewService(repo RecommendationRepository) *ServiceImpl {
	return &ServiceImpl{repo: repo, rand: globalRand{}}
}

func (s *ServiceImpl) Insert(ctx context.Context, name, youtubeLink string) (*Recommendation, error) {
	_, err := s.repo.FindByName(ctx, name)
	if err == nil {
		log.Debug().Str("name", name).Msg("duplicate recommendation rejected")
		return nil, fmt.Errorf("%w: recommendations names must be unique", ErrConflict)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	rec, err := s.repo.Create(ctx, Recommendation{Name: name, YoutubeLink: youtubeLink, Score: 0})
	if err != nil {
		return nil, err
	}
	recommendationsCreated.Inc()
	log.Info().Int64("id", rec.ID).Str("name", rec.Name).Msg("recommendation created")
	return rec, nil
}

func (s *ServiceImpl) Upvote(ctx context.Context, id int64) (*Recommendation, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	rec, err := s.repo.UpdateScore(ctx, id, Increment)
	if err != nil {
		return nil, err
	}
	votesTotal.WithLabelValues(Increment.String()).Inc()
	return rec, nil
}

// Downvote lowers the score by one and removes the record once the stored
// score falls below removalScore. The returned flag reports the removal.
func (s *ServiceImpl) Downvote(ctx context.Context, id int64) (*Recommendation, bool, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, false, err
	}
	rec, err := s.repo.UpdateScore(ctx, id, Decrement)
	if err != nil {
		return nil, false, err
	}
	votesTotal.WithLabelValues(Decrement.String()).Inc()

	if rec.Score >= removalScore {
		return rec, false, nil
	}
	if err := s.repo.Remove(ctx, id); err != nil {
		return nil, false, err
	}
	recommendationsRemoved.WithLabelValues("score").Inc()
	log.Info().Int64("id", id).Int("score", rec.Score).Msg("recommendation removed after downvote")
	return rec, true, nil
}

func (s *ServiceImpl) Get(ctx context.Context) ([]Recommendation, error) {
	return s.repo.FindAll(ctx, nil)
}

func (s *ServiceImpl) GetByID(ctx context.Context, id int64) (*Recommendation, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: recommendation %d", ErrNotFound, id)
	}
	return rec, err
}

func (s *ServiceImpl) GetTop(ctx context.Context, amount int) ([]Recommendation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}
	return s.repo.GetTopByScore(ctx, amount)
}

// GetRandom prefers recommendations scored above randomScoreThreshold in
// randomHighShare of the draws. When the drawn bucket is empty any
// recommendation may be returned.
func (s *ServiceImpl) GetRandom(ctx context.Context) (*Recommendation, error) {
	bucket := "low"
	filter := &ScoreFilter{Score: randomScoreThreshold, Comparison: ScoreLessOrEqual}
	if s.rand.Float64() <= randomHighShare {
		bucket = "high"
		filter.Comparison = ScoreGreaterThan
	}

	recs, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		bucket = "any"
		recs, err = s.repo.FindAll(ctx, nil)
		if err != nil {
			return nil, err
		}
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no recommendations available", ErrNotFound)
	}

	randomPicks.WithLabelValues(bucket).Inc()
	rec := recs[s.rand.IntN(len(recs))]
	return &rec, nil
}

func (s *ServiceImpl) FindByName(ctx context.Context, name string) (*Recommendation, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrNotFound)
	}
	rec, err := s.repo.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: recommendation %q", ErrNotFound, name)
	}
	return rec, err
}

func (s *ServiceImpl) Remove(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}
	recommendationsRemoved.WithLabelValues("admin").Inc()
	log.Info().Int64("id", id).Msg("recommendation removed by admin")
	return nil
}

func (s *ServiceImpl) ResetDatabase(ctx context.Context) error {
	log.Warn().Msg("resetting recommendations")
	return s.repo.Reset(ctx)
}

// SeedDatabase inserts the fixtures used by the end-to-end suites.
func (s *ServiceImpl) SeedDatabase(ctx context.Context) error {
	for _, rec := range testFixtures {
		if _, err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("seed %q: %w", rec.Name, err)
		}
	}
	return nil
}

// SeedInitial inserts the starter recommendations that are not present yet.
func (s *ServiceImpl) SeedInitial(ctx context.Context) error {
	for _, rec := range initialRecommendations {
		_, err := s.repo.FindByName(ctx, rec.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if _, err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("seed %q: %w", rec.Name, err)
		}
	}
	log.Info().Int("count", len(initialRecommendations)).Msg("initial recommendations seeded")
	return nil
}

func (s *ServiceImpl) close() error {
	return s.repo.Close()
}
