package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
)

// JudgingTarget is the slice of a submission the Judging Step needs:
// ownership already proven by the (id, user) lookup, plus the reward
// carried by the owning problem.
type JudgingTarget struct {
	SubmissionID string
	UserID       string
	ProblemID    string
	AuraReward   int
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id, userID string) (*model.Submission, error)
	ListForUserProblem(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Submission, error)

	// Judging Step primitives, always inside a caller-owned transaction.
	GetForJudging(ctx context.Context, tx *sql.Tx, id, userID string) (*JudgingTarget, error)
	ApplyVerdict(ctx context.Context, tx *sql.Tx, id string, verdict model.Verdict) error
	// MarkProblemSolved conditionally inserts the Solved-Set row. It reports
	// whether the row was inserted now; false means the pair was already
	// present (or a concurrent judge won the race) and no reward is due.
	MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID, submissionID string) (bool, error)

	GetSolvedProblemsByUser(ctx context.Context, userID string) ([]model.SolvedProblem, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, code, language, status)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at`
	err := tx.QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.Code, sub.Language, sub.Status,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id, userID string) (*model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.code, s.language, s.status,
	                 s.runtime_ms, s.memory_kb, s.error_message, s.test_results, s.created_at,
	                 p.title, p.slug
	          FROM submissions s
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.id = $1 AND s.user_id = $2`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Code, &sub.Language, &sub.Status,
		&sub.RuntimeMs, &sub.MemoryKb, &sub.ErrorMessage, &sub.TestResults, &sub.CreatedAt,
		&sub.ProblemTitle, &sub.ProblemSlug,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListForUserProblem(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error) {
	query := `SELECT id, user_id, problem_id, language, status, runtime_ms, memory_kb, created_at
	          FROM submissions
	          WHERE problem_id = $1 AND user_id = $2
	          ORDER BY created_at DESC
	          LIMIT $3`
	return r.list(ctx, query, problemID, userID, limit)
}

func (r *pgSubmissionRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.language, s.status, s.runtime_ms, s.memory_kb, s.created_at,
	                 p.title, p.slug
	          FROM submissions s
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.user_id = $1
	          ORDER BY s.created_at DESC
	          LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListRecentByUser: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.Status,
			&s.RuntimeMs, &s.MemoryKb, &s.CreatedAt, &s.ProblemTitle, &s.ProblemSlug); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListRecentByUser scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *pgSubmissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.list: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.Status,
			&s.RuntimeMs, &s.MemoryKb, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.list scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *pgSubmissionRepository) GetForJudging(ctx context.Context, tx *sql.Tx, id, userID string) (*JudgingTarget, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, p.aura_reward
	          FROM submissions s
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.id = $1 AND s.user_id = $2`
	target := &JudgingTarget{}
	err := tx.QueryRowContext(ctx, query, id, userID).Scan(
		&target.SubmissionID, &target.UserID, &target.ProblemID, &target.AuraReward,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetForJudging: %w", err)
	}
	return target, nil
}

func (r *pgSubmissionRepository) ApplyVerdict(ctx context.Context, tx *sql.Tx, id string, verdict model.Verdict) error {
	query := `UPDATE submissions
	          SET status = $1, runtime_ms = $2, memory_kb = $3, error_message = $4, test_results = $5
	          WHERE id = $6`
	res, err := tx.ExecContext(ctx, query,
		verdict.Status, verdict.RuntimeMs, verdict.MemoryKb, verdict.ErrorMessage, verdict.TestResults, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.ApplyVerdict: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSubmissionRepository) MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID, submissionID string) (bool, error) {
	// The unique (user_id, problem_id) index is the idempotence guard: a
	// concurrent judge that loses this insert sees zero rows affected and
	// must skip the aggregate increments.
	query := `INSERT INTO user_solved_problems (user_id, problem_id, best_submission_id)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, problem_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, query, userID, problemID, submissionID)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved rows: %w", err)
	}
	return n == 1, nil
}

func (r *pgSubmissionRepository) GetSolvedProblemsByUser(ctx context.Context, userID string) ([]model.SolvedProblem, error) {
	query := `SELECT p.id, p.title, p.slug, p.difficulty, p.aura_reward, usp.first_solved_at
	          FROM user_solved_problems usp
	          JOIN problems p ON usp.problem_id = p.id
	          WHERE usp.user_id = $1
	          ORDER BY usp.first_solved_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetSolvedProblemsByUser: %w", err)
	}
	defer rows.Close()

	var solved []model.SolvedProblem
	for rows.Next() {
		var sp model.SolvedProblem
		if err := rows.Scan(&sp.ProblemID, &sp.Title, &sp.Slug, &sp.Difficulty, &sp.AuraReward, &sp.FirstSolvedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetSolvedProblemsByUser scan: %w", err)
		}
		solved = append(solved, sp)
	}
	return solved, rows.Err()
}
