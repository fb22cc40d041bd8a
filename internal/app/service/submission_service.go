package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
	"code_farm/internal/domain/repository"

	"github.com/google/uuid"
)

type SubmissionService struct {
	submissionRepo     repository.SubmissionRepository
	problemRepo        repository.ProblemRepository
	userRepo           repository.UserRepository
	leaderboardService *LeaderboardService
	db                 *sql.DB // For transactions
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	userRepo repository.UserRepository,
	leaderboardService *LeaderboardService,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo:     subRepo,
		problemRepo:        probRepo,
		userRepo:           userRepo,
		leaderboardService: leaderboardService,
		db:                 db,
	}
}

type CreateSubmissionRequest struct {
	ProblemID string `json:"problem_id"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

// CreateSubmission inserts a pending submission and bumps the user's and
// problem's submission counters in a single transaction. Either all three
// writes land or none do.
func (s *SubmissionService) CreateSubmission(ctx context.Context, userID string, req CreateSubmissionRequest) (*model.Submission, error) {
	if req.ProblemID == "" || req.Code == "" || req.Language == "" {
		return nil, common.Errorf("missing required fields: %w", common.ErrBadRequest)
	}
	if !model.ValidLanguages[req.Language] {
		return nil, common.Errorf("invalid language %q: %w", req.Language, common.ErrBadRequest)
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	if !problem.IsPublished {
		return nil, common.Errorf("problem is not published: %w", common.ErrNotFound)
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: problem.ID,
		Code:      req.Code,
		Language:  req.Language,
		Status:    model.StatusPending,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", common.ErrServiceUnavailable)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}
	if err := s.userRepo.IncrementTotalSubmissions(ctx, tx, userID); err != nil {
		return nil, common.Errorf("failed to update user submission counter: %w", err)
	}
	if err := s.problemRepo.IncrementSubmissionCount(ctx, tx, problem.ID); err != nil {
		return nil, common.Errorf("failed to update problem submission counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", common.ErrServiceUnavailable)
	}

	log.Printf("Submission %s created for problem %s by user %s", submission.ID, problem.ID, userID)
	return submission, nil
}

type JudgeRequest struct {
	Status    model.SubmissionStatus `json:"status"`
	RuntimeMs *int                   `json:"runtime_ms,omitempty"`
	MemoryKb  *int                   `json:"memory_kb,omitempty"`
}

type JudgeResult struct {
	Status   model.SubmissionStatus `json:"status"`
	Rewarded bool                   `json:"rewarded"`
}

// JudgeSubmission applies a verdict to a submission owned by the caller.
// The whole transition is one transaction: the verdict always lands on the
// submission row, and on the first-ever accepted verdict for the
// (user, problem) pair the aura reward and solved counters are applied.
// A repeat accepted verdict finds the Solved-Set row already present and
// changes no aggregate.
func (s *SubmissionService) JudgeSubmission(ctx context.Context, userID, submissionID string, req JudgeRequest) (*JudgeResult, error) {
	if !model.ValidVerdictStatus(req.Status) {
		return nil, common.Errorf("invalid verdict status %q: %w", req.Status, common.ErrBadRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", common.ErrServiceUnavailable)
	}
	defer tx.Rollback()

	target, err := s.submissionRepo.GetForJudging(ctx, tx, submissionID, userID)
	if err != nil {
		return nil, common.Errorf("submission not found: %w", err)
	}

	verdict := model.Verdict{
		Status:    req.Status,
		RuntimeMs: req.RuntimeMs,
		MemoryKb:  req.MemoryKb,
	}
	if err := s.submissionRepo.ApplyVerdict(ctx, tx, target.SubmissionID, verdict); err != nil {
		return nil, common.Errorf("failed to apply verdict: %w", err)
	}

	rewarded := false
	if req.Status == model.StatusAccepted {
		inserted, err := s.submissionRepo.MarkProblemSolved(ctx, tx, target.UserID, target.ProblemID, target.SubmissionID)
		if err != nil {
			return nil, common.Errorf("failed to record solve: %w", err)
		}
		if inserted {
			if err := s.userRepo.ApplyAuraReward(ctx, tx, target.UserID, target.AuraReward); err != nil {
				return nil, common.Errorf("failed to apply aura reward: %w", err)
			}
			if err := s.problemRepo.IncrementSolvedCount(ctx, tx, target.ProblemID); err != nil {
				return nil, common.Errorf("failed to update problem solved counter: %w", err)
			}
			rewarded = true
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", common.ErrServiceUnavailable)
	}

	if rewarded {
		// Ranks changed; drop cached leaderboard pages.
		s.leaderboardService.Invalidate(ctx)
		log.Printf("User %s earned %d aura for problem %s (submission %s)",
			target.UserID, target.AuraReward, target.ProblemID, target.SubmissionID)
	}

	return &JudgeResult{Status: req.Status, Rewarded: rewarded}, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, userID, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, common.Errorf("failed to fetch submission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionService) GetProblemHistory(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error) {
	subs, err := s.submissionRepo.ListForUserProblem(ctx, userID, problemID, limit)
	if err != nil {
		return nil, common.Errorf("failed to fetch submission history: %w", err)
	}
	return subs, nil
}
