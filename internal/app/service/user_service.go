package service

import (
	"context"
	"errors"
	"log"
	"time"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
	"code_farm/internal/domain/repository"
)

type UserService struct {
	userRepo        repository.UserRepository
	submissionRepo  repository.SubmissionRepository
	leaderboardRepo repository.LeaderboardRepository
}

func NewUserService(
	userRepo repository.UserRepository,
	submissionRepo repository.SubmissionRepository,
	leaderboardRepo repository.LeaderboardRepository,
) *UserService {
	return &UserService{
		userRepo:        userRepo,
		submissionRepo:  submissionRepo,
		leaderboardRepo: leaderboardRepo,
	}
}

type PublicProfile struct {
	ID                string                `json:"id"`
	Username          string                `json:"username"`
	Aura              int                   `json:"aura"`
	ProblemsSolved    int                   `json:"problems_solved"`
	TotalSubmissions  int                   `json:"total_submissions"`
	Rank              int                   `json:"rank"`
	CreatedAt         time.Time             `json:"created_at"`
	RecentSubmissions []model.Submission    `json:"recent_submissions"`
	SolvedProblems    []model.SolvedProblem `json:"solved_problems"`
}

const recentSubmissionsLimit = 10

func (s *UserService) GetProfile(ctx context.Context, username string) (*PublicProfile, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, common.Errorf("failed to fetch user: %w", err)
	}

	rank, err := s.leaderboardRepo.GetUserRank(ctx, user.ID)
	if err != nil {
		return nil, common.Errorf("failed to fetch rank: %w", err)
	}

	recent, err := s.submissionRepo.ListRecentByUser(ctx, user.ID, recentSubmissionsLimit)
	if err != nil {
		log.Printf("WARN: Failed to fetch recent submissions for user %s: %v", user.ID, err)
	}

	solved, err := s.submissionRepo.GetSolvedProblemsByUser(ctx, user.ID)
	if err != nil {
		log.Printf("WARN: Failed to fetch solved problems for user %s: %v", user.ID, err)
	}

	return &PublicProfile{
		ID:                user.ID,
		Username:          user.Username,
		Aura:              user.Aura,
		ProblemsSolved:    user.ProblemsSolved,
		TotalSubmissions:  user.TotalSubmissions,
		Rank:              rank,
		CreatedAt:         user.CreatedAt,
		RecentSubmissions: recent,
		SolvedProblems:    solved,
	}, nil
}
