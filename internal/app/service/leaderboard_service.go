package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
	"code_farm/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// Cache is the slice of the redis client the leaderboard uses. *redis.Client
// satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type LeaderboardService struct {
	leaderboardRepo repository.LeaderboardRepository
	cache           Cache
	cacheTTL        time.Duration
}

func NewLeaderboardService(repo repository.LeaderboardRepository, cache Cache, cacheTTL time.Duration) *LeaderboardService {
	return &LeaderboardService{
		leaderboardRepo: repo,
		cache:           cache,
		cacheTTL:        cacheTTL,
	}
}

type LeaderboardPage struct {
	Users []model.LeaderboardEntry `json:"users"`
	Total int                      `json:"total"`
}

// Only the first page is cached; deeper pages are rare and cheap to serve
// straight from the ranking query.
const firstPageCacheKey = "leaderboard:first_page"

func (s *LeaderboardService) GetLeaderboard(ctx context.Context, limit, offset int) (*LeaderboardPage, error) {
	cacheable := offset == 0 && s.cache != nil

	if cacheable {
		if raw, err := s.cache.Get(ctx, s.pageKey(limit)).Result(); err == nil {
			page := &LeaderboardPage{}
			if err := json.Unmarshal([]byte(raw), page); err == nil {
				return page, nil
			}
		}
	}

	entries, total, err := s.leaderboardRepo.GetLeaderboard(ctx, limit, offset)
	if err != nil {
		return nil, common.Errorf("failed to fetch leaderboard: %w", err)
	}
	page := &LeaderboardPage{Users: entries, Total: total}

	if cacheable {
		if raw, err := json.Marshal(page); err == nil {
			if err := s.cache.Set(ctx, s.pageKey(limit), raw, s.cacheTTL).Err(); err != nil {
				log.Printf("WARN: failed to cache leaderboard page: %v", err)
			}
		}
	}
	return page, nil
}

func (s *LeaderboardService) GetUserRank(ctx context.Context, userID string) (int, error) {
	rank, err := s.leaderboardRepo.GetUserRank(ctx, userID)
	if err != nil {
		return 0, common.Errorf("failed to fetch rank: %w", err)
	}
	return rank, nil
}

// Invalidate drops cached leaderboard pages after a first solve changes the
// ranking. Cache errors are logged, never surfaced: the TTL bounds staleness.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(cachedPageLimits))
	for _, limit := range cachedPageLimits {
		keys = append(keys, s.pageKey(limit))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		log.Printf("WARN: failed to invalidate leaderboard cache: %v", err)
	}
}

// Page sizes the front end actually requests.
var cachedPageLimits = []int{10, 25, 50, 100}

func (s *LeaderboardService) pageKey(limit int) string {
	return fmt.Sprintf("%s:%d", firstPageCacheKey, limit)
}
