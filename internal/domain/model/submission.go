package model

import (
	"encoding/json"
	"time"
)

type SubmissionStatus string

const (
	StatusPending           SubmissionStatus = "pending"
	StatusAccepted          SubmissionStatus = "accepted"
	StatusWrongAnswer       SubmissionStatus = "wrong_answer"
	StatusTimeLimitExceeded SubmissionStatus = "time_limit_exceeded"
	StatusRuntimeError      SubmissionStatus = "runtime_error"
	StatusCompileError      SubmissionStatus = "compile_error"
)

// ValidVerdictStatus reports whether s is a status a judge may assign.
// Pending is excluded: a submission never transitions back to pending.
func ValidVerdictStatus(s SubmissionStatus) bool {
	switch s {
	case StatusAccepted, StatusWrongAnswer, StatusTimeLimitExceeded,
		StatusRuntimeError, StatusCompileError:
		return true
	}
	return false
}

// Languages accepted for submissions.
var ValidLanguages = map[string]bool{
	"javascript": true,
	"python":     true,
	"cpp":        true,
	"java":       true,
	"go":         true,
	"rust":       true,
}

type Submission struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	ProblemID    string           `json:"problem_id"`
	Code         string           `json:"code"`
	Language     string           `json:"language"`
	Status       SubmissionStatus `json:"status"`
	RuntimeMs    *int             `json:"runtime_ms,omitempty"`
	MemoryKb     *int             `json:"memory_kb,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	TestResults  json.RawMessage  `json:"test_results,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ProblemTitle *string          `json:"problem_title,omitempty"` // For display
	ProblemSlug  *string          `json:"problem_slug,omitempty"`  // For display
}

// Verdict is the judgment outcome applied to a submission.
type Verdict struct {
	Status       SubmissionStatus `json:"status"`
	RuntimeMs    *int             `json:"runtime_ms,omitempty"`
	MemoryKb     *int             `json:"memory_kb,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	TestResults  json.RawMessage  `json:"test_results,omitempty"`
}
