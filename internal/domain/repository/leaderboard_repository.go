package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
)

type LeaderboardRepository interface {
	GetLeaderboard(ctx context.Context, limit, offset int) ([]model.LeaderboardEntry, int, error)
	GetUserRank(ctx context.Context, userID string) (int, error)
}

type pgLeaderboardRepository struct {
	db *sql.DB
}

func NewPgLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &pgLeaderboardRepository{db: db}
}

// Ranking orders by aura descending with created_at then id as tie-breaks,
// so equal-aura users always rank in account-creation order.
const rankingQuery = `
	SELECT id, username, aura, problems_solved, total_submissions,
	       ROW_NUMBER() OVER (ORDER BY aura DESC, created_at ASC, id ASC) AS rank
	FROM users`

func (r *pgLeaderboardRepository) GetLeaderboard(ctx context.Context, limit, offset int) ([]model.LeaderboardEntry, int, error) {
	query := `SELECT id, username, aura, problems_solved, total_submissions, rank
	          FROM (` + rankingQuery + `) ranked
	          ORDER BY rank
	          LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgLeaderboardRepository.GetLeaderboard: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Aura, &e.ProblemsSolved, &e.TotalSubmissions, &e.Rank); err != nil {
			return nil, 0, fmt.Errorf("pgLeaderboardRepository.GetLeaderboard scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgLeaderboardRepository.GetLeaderboard rows.Err: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgLeaderboardRepository.GetLeaderboard count: %w", err)
	}
	return entries, total, nil
}

func (r *pgLeaderboardRepository) GetUserRank(ctx context.Context, userID string) (int, error) {
	query := `SELECT rank FROM (` + rankingQuery + `) ranked WHERE id = $1`
	var rank int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("pgLeaderboardRepository.GetUserRank: %w", err)
	}
	return rank, nil
}
