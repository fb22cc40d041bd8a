package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Counter mutations, always inside a caller-owned transaction.
	IncrementTotalSubmissions(ctx context.Context, tx *sql.Tx, userID string) error
	ApplyAuraReward(ctx context.Context, tx *sql.Tx, userID string, auraReward int) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role, aura, problems_solved, total_submissions, created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *pgUserRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&user.Aura, &user.ProblemsSolved, &user.TotalSubmissions,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.findOne: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) IncrementTotalSubmissions(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `UPDATE users SET total_submissions = total_submissions + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.IncrementTotalSubmissions: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) ApplyAuraReward(ctx context.Context, tx *sql.Tx, userID string, auraReward int) error {
	query := `UPDATE users SET aura = aura + $1, problems_solved = problems_solved + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := tx.ExecContext(ctx, query, auraReward, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.ApplyAuraReward: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}
