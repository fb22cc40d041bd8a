package model

import "time"

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"user_id"`
	Username         string `json:"username"`
	Aura             int    `json:"aura"`
	ProblemsSolved   int    `json:"problems_solved"`
	TotalSubmissions int    `json:"total_submissions"`
}

// SolvedProblem is a Solved-Set row joined with problem display fields,
// as shown on a user's public profile.
type SolvedProblem struct {
	ProblemID     string            `json:"problem_id"`
	Title         string            `json:"title"`
	Slug          string            `json:"slug"`
	Difficulty    ProblemDifficulty `json:"difficulty"`
	AuraReward    int               `json:"aura_reward"`
	FirstSolvedAt time.Time         `json:"first_solved_at"`
}
