// this file defines the data structures to be used throughout
package main

// Recommendation is a named reference to a YouTube video with a mutable score.
type Recommendation struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	YoutubeLink string `json:"youtubeLink" db:"youtube_link"`
	Score       int    `json:"score" db:"score"`
}

type CreateRecommendationRequest struct {
	Name        string `json:"name" validate:"required"`
	YoutubeLink string `json:"youtubeLink" validate:"required,youtube"`
}

type VoteResult struct {
	ID      int64 `json:"id"`
	Score   int   `json:"score"`
	Removed bool  `json:"removed"`
}

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type ScoreComparison int

const (
	ScoreGreaterThan ScoreComparison = iota
	ScoreLessOrEqual
)

// ScoreFilter restricts FindAll to records on one side of a score threshold.
type ScoreFilter struct {
	Score      int
	Comparison ScoreComparison
}

func (f ScoreFilter) matches(score int) bool {
	if f.Comparison == ScoreGreaterThan {
		return score > f.Score
	}
	return score <= f.Score
}

type ScoreDirection int

const (
	Increment ScoreDirection = 1
	Decrement ScoreDirection = -1
)

func (d ScoreDirection) String() string {
	if d == Increment {
		return "increment"
	}
	return "decrement"
}
