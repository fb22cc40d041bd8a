package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// ProblemFilter narrows ListProblems. Zero values mean "no filter".
type ProblemFilter struct {
	Difficulty model.ProblemDifficulty
	Category   string
	Search     string
}

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	SetPublished(ctx context.Context, id string, published bool) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, filter ProblemFilter) ([]model.Problem, int, error)

	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategoriesByProblemID(ctx context.Context, problemID string) ([]string, error)
	SetProblemCategories(ctx context.Context, tx *sql.Tx, problemID string, categoryIDs []string) error

	// Counter mutations, always inside a caller-owned transaction.
	IncrementSubmissionCount(ctx context.Context, tx *sql.Tx, problemID string) error
	IncrementSolvedCount(ctx context.Context, tx *sql.Tx, problemID string) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `p.id, p.title, p.slug, p.description, p.difficulty, p.aura_reward,
	       p.time_limit_ms, p.memory_limit_mb, p.input_format, p.output_format,
	       p.constraints, p.sample_input, p.sample_output,
	       p.solved_count, p.submission_count, p.is_published, p.created_by,
	       p.created_at, p.updated_at`

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, description, difficulty, aura_reward,
	              time_limit_ms, memory_limit_mb, input_format, output_format, constraints,
	              sample_input, sample_output, is_published, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.AuraReward,
		p.TimeLimitMs, p.MemoryLimitMb, p.InputFormat, p.OutputFormat, p.Constraints,
		p.SampleInput, p.SampleOutput, p.IsPublished, p.CreatedByID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) SetPublished(ctx context.Context, id string, published bool) error {
	query := `UPDATE problems SET is_published = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, published, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.SetPublished: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.id = $1`
	return r.findOne(ctx, query, id)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.slug = $1 AND p.is_published = TRUE`
	return r.findOne(ctx, query, slug)
}

func (r *pgProblemRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Problem, error) {
	problem := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&problem.ID, &problem.Title, &problem.Slug, &problem.Description, &problem.Difficulty, &problem.AuraReward,
		&problem.TimeLimitMs, &problem.MemoryLimitMb, &problem.InputFormat, &problem.OutputFormat,
		&problem.Constraints, &problem.SampleInput, &problem.SampleOutput,
		&problem.SolvedCount, &problem.SubmissionCount, &problem.IsPublished, &problem.CreatedByID,
		&problem.CreatedAt, &problem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.findOne: %w", err)
	}
	return problem, nil
}

// ListProblems returns published problems only; drafts never leave the admin path.
func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, filter ProblemFilter) ([]model.Problem, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`
        SELECT DISTINCT p.id, p.title, p.slug, p.difficulty, p.aura_reward,
               p.solved_count, p.submission_count, p.created_at
        FROM problems p`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(DISTINCT p.id) FROM problems p`)

	conditions := []string{"p.is_published = TRUE"}
	var args []interface{}
	argID := 1

	if filter.Category != "" {
		join := " LEFT JOIN problem_categories pc ON p.id = pc.problem_id LEFT JOIN categories c ON pc.category_id = c.id"
		baseQuery.WriteString(join)
		countQuery.WriteString(join)
		conditions = append(conditions, fmt.Sprintf("c.name = $%d", argID))
		args = append(args, filter.Category)
		argID++
	}

	if filter.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, filter.Difficulty)
		argID++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", argID, argID))
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")
	baseQuery.WriteString(whereClause)
	countQuery.WriteString(whereClause)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	baseQuery.WriteString(fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Difficulty, &p.AuraReward,
			&p.SolvedCount, &p.SubmissionCount, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}

	return problems, total, nil
}

func (r *pgProblemRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	query := `SELECT id, name, description FROM categories ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListCategories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListCategories scan: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *pgProblemRepository) GetCategoriesByProblemID(ctx context.Context, problemID string) ([]string, error) {
	query := `SELECT c.name FROM categories c
	          JOIN problem_categories pc ON c.id = pc.category_id
	          WHERE pc.problem_id = $1 ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetCategoriesByProblemID: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetCategoriesByProblemID scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *pgProblemRepository) SetProblemCategories(ctx context.Context, tx *sql.Tx, problemID string, categoryIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM problem_categories WHERE problem_id = $1`, problemID); err != nil {
		return fmt.Errorf("pgProblemRepository.SetProblemCategories clear: %w", err)
	}
	for _, categoryID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO problem_categories (problem_id, category_id) VALUES ($1, $2)`,
			problemID, categoryID); err != nil {
			return fmt.Errorf("pgProblemRepository.SetProblemCategories insert: %w", err)
		}
	}
	return nil
}

func (r *pgProblemRepository) IncrementSubmissionCount(ctx context.Context, tx *sql.Tx, problemID string) error {
	query := `UPDATE problems SET submission_count = submission_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, problemID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.IncrementSubmissionCount: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) IncrementSolvedCount(ctx context.Context, tx *sql.Tx, problemID string) error {
	query := `UPDATE problems SET solved_count = solved_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, problemID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.IncrementSolvedCount: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}
