package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy    ProblemDifficulty = "easy"
	DifficultyMedium  ProblemDifficulty = "medium"
	DifficultyHard    ProblemDifficulty = "hard"
	DifficultyExtreme ProblemDifficulty = "extreme"
)

// ValidDifficulty reports whether d is one of the fixed difficulty levels.
func ValidDifficulty(d ProblemDifficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExtreme:
		return true
	}
	return false
}

type Problem struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Slug            string            `json:"slug"`
	Description     string            `json:"description"`
	Difficulty      ProblemDifficulty `json:"difficulty"`
	AuraReward      int               `json:"aura_reward"`
	TimeLimitMs     int               `json:"time_limit_ms"`
	MemoryLimitMb   int               `json:"memory_limit_mb"`
	InputFormat     *string           `json:"input_format,omitempty"`
	OutputFormat    *string           `json:"output_format,omitempty"`
	Constraints     *string           `json:"constraints,omitempty"`
	SampleInput     *string           `json:"sample_input,omitempty"`
	SampleOutput    *string           `json:"sample_output,omitempty"`
	SolvedCount     int               `json:"solved_count"`
	SubmissionCount int               `json:"submission_count"`
	IsPublished     bool              `json:"is_published"`
	CreatedByID     *string           `json:"created_by_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Categories      []string          `json:"categories,omitempty"`
}

type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}
