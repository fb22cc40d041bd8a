package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	HashedPassword   string    `json:"-"` // Not exposed
	Role             string    `json:"role"`
	Aura             int       `json:"aura"`
	ProblemsSolved   int       `json:"problems_solved"`
	TotalSubmissions int       `json:"total_submissions"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
