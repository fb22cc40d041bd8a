package service

import (
	"context"
	"database/sql"
	"log"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
	"code_farm/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug" // For slug generation
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	db          *sql.DB // For transactions
}

func NewProblemService(problemRepo repository.ProblemRepository, db *sql.DB) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		db:          db,
	}
}

type CreateProblemRequest struct {
	Title         string                  `json:"title"`
	Description   string                  `json:"description"`
	Difficulty    model.ProblemDifficulty `json:"difficulty"`
	AuraReward    int                     `json:"aura_reward"`
	TimeLimitMs   int                     `json:"time_limit_ms"`
	MemoryLimitMb int                     `json:"memory_limit_mb"`
	InputFormat   *string                 `json:"input_format,omitempty"`
	OutputFormat  *string                 `json:"output_format,omitempty"`
	Constraints   *string                 `json:"constraints,omitempty"`
	SampleInput   *string                 `json:"sample_input,omitempty"`
	SampleOutput  *string                 `json:"sample_output,omitempty"`
	CategoryIDs   []string                `json:"category_ids,omitempty"`
}

// CreateProblem creates an unpublished problem. Slug and aura_reward are
// fixed here; neither changes after the problem goes live.
func (s *ProblemService) CreateProblem(ctx context.Context, userID string, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.Description == "" || req.Difficulty == "" {
		return nil, common.Errorf("missing required fields for problem creation: %w", common.ErrBadRequest)
	}
	if !model.ValidDifficulty(req.Difficulty) {
		return nil, common.Errorf("invalid difficulty %q: %w", req.Difficulty, common.ErrBadRequest)
	}
	if req.AuraReward <= 0 {
		return nil, common.Errorf("aura_reward must be positive: %w", common.ErrBadRequest)
	}

	problem := &model.Problem{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Slug:          slug.Make(req.Title), // Duplicate titles surface as a slug conflict
		Description:   req.Description,
		Difficulty:    req.Difficulty,
		AuraReward:    req.AuraReward,
		TimeLimitMs:   req.TimeLimitMs,
		MemoryLimitMb: req.MemoryLimitMb,
		InputFormat:   req.InputFormat,
		OutputFormat:  req.OutputFormat,
		Constraints:   req.Constraints,
		SampleInput:   req.SampleInput,
		SampleOutput:  req.SampleOutput,
		IsPublished:   false,
		CreatedByID:   &userID,
	}
	if problem.TimeLimitMs == 0 {
		problem.TimeLimitMs = 2000
	} // Default
	if problem.MemoryLimitMb == 0 {
		problem.MemoryLimitMb = 256
	} // Default

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", common.ErrServiceUnavailable)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, common.Errorf("failed to create problem in DB: %w", err)
	}

	if len(req.CategoryIDs) > 0 {
		if err := s.problemRepo.SetProblemCategories(ctx, tx, problem.ID, req.CategoryIDs); err != nil {
			return nil, common.Errorf("failed to set problem categories: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", common.ErrServiceUnavailable)
	}

	log.Printf("Problem %s (%s) created by user %s", problem.ID, problem.Slug, userID)
	return problem, nil
}

func (s *ProblemService) PublishProblem(ctx context.Context, problemID string) error {
	if err := s.problemRepo.SetPublished(ctx, problemID, true); err != nil {
		return common.Errorf("failed to publish problem: %w", err)
	}
	log.Printf("Problem %s published", problemID)
	return nil
}

func (s *ProblemService) GetProblemBySlug(ctx context.Context, problemSlug string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, problemSlug)
	if err != nil {
		return nil, err // common.ErrNotFound or other errors
	}

	categories, err := s.problemRepo.GetCategoriesByProblemID(ctx, problem.ID)
	if err != nil {
		log.Printf("WARN: Failed to fetch categories for problem %s: %v", problem.ID, err)
		// Continue, but categories will be missing
	}
	problem.Categories = categories
	return problem, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, limit, offset int, filter repository.ProblemFilter) ([]model.Problem, int, error) {
	if filter.Difficulty != "" && !model.ValidDifficulty(filter.Difficulty) {
		return nil, 0, common.Errorf("invalid difficulty filter %q: %w", filter.Difficulty, common.ErrBadRequest)
	}
	return s.problemRepo.ListProblems(ctx, limit, offset, filter)
}

func (s *ProblemService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.problemRepo.ListCategories(ctx)
}
