package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"code_farm/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// fakeCache satisfies Cache with an in-memory map. TTLs are ignored.
type fakeCache struct {
	store   map[string]string
	deleted []string
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]string{}}
}

func (c *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	val, ok := c.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		c.store[key] = string(v)
	case string:
		c.store[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	c.deleted = append(c.deleted, keys...)
	for _, k := range keys {
		delete(c.store, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type fakeLeaderboardRepo struct {
	entries []model.LeaderboardEntry
	total   int
	ranks   map[string]int
	calls   int
	err     error
}

func (f *fakeLeaderboardRepo) GetLeaderboard(_ context.Context, limit, offset int) ([]model.LeaderboardEntry, int, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	if offset >= len(f.entries) {
		return []model.LeaderboardEntry{}, f.total, nil
	}
	end := offset + limit
	if end > len(f.entries) {
		end = len(f.entries)
	}
	return f.entries[offset:end], f.total, nil
}

func (f *fakeLeaderboardRepo) GetUserRank(_ context.Context, userID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.ranks[userID], nil
}

func rankedUsers(n int) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, n)
	for i := range entries {
		entries[i] = model.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   string(rune('a' + i)),
			Username: "user" + string(rune('a'+i)),
			Aura:     1000 - i*100,
		}
	}
	return entries
}

func TestLeaderboardFirstPageIsCached(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: rankedUsers(5), total: 5}
	cache := newFakeCache()
	svc := NewLeaderboardService(repo, cache, time.Minute)

	page, err := svc.GetLeaderboard(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Users) != 5 || page.Total != 5 {
		t.Fatalf("got %d users / total %d, want 5 / 5", len(page.Users), page.Total)
	}
	if repo.calls != 1 {
		t.Fatalf("repo called %d times, want 1", repo.calls)
	}

	// Second read must come from the cache.
	page, err = svc.GetLeaderboard(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("repo called %d times after cached read, want 1", repo.calls)
	}
	if page.Users[0].Rank != 1 || page.Users[0].Aura != 1000 {
		t.Fatalf("cached page corrupted: %+v", page.Users[0])
	}
}

func TestLeaderboardDeepPagesBypassCache(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: rankedUsers(5), total: 5}
	cache := newFakeCache()
	svc := NewLeaderboardService(repo, cache, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := svc.GetLeaderboard(context.Background(), 2, 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.calls != 3 {
		t.Fatalf("repo called %d times, want 3 (no caching past the first page)", repo.calls)
	}
	if len(cache.store) != 0 {
		t.Fatal("deep pages must not be written to the cache")
	}
}

func TestLeaderboardRanksAreStrictlyIncreasing(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: rankedUsers(8), total: 8}
	svc := NewLeaderboardService(repo, newFakeCache(), time.Minute)

	page, err := svc.GetLeaderboard(context.Background(), 8, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(page.Users); i++ {
		prev, cur := page.Users[i-1], page.Users[i]
		if cur.Rank != prev.Rank+1 {
			t.Fatalf("ranks not contiguous: %d then %d", prev.Rank, cur.Rank)
		}
		if cur.Aura > prev.Aura {
			t.Fatalf("aura not descending: %d then %d", prev.Aura, cur.Aura)
		}
	}
}

func TestLeaderboardCacheFailureFallsThrough(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: rankedUsers(3), total: 3}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	svc := NewLeaderboardService(repo, cache, time.Minute)

	page, err := svc.GetLeaderboard(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
	if len(page.Users) != 3 {
		t.Fatalf("got %d users, want 3", len(page.Users))
	}
}

func TestLeaderboardCorruptCacheEntryIsIgnored(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: rankedUsers(3), total: 3}
	cache := newFakeCache()
	svc := NewLeaderboardService(repo, cache, time.Minute)

	cache.store["leaderboard:first_page:10"] = "{not json"
	page, err := svc.GetLeaderboard(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 1 || len(page.Users) != 3 {
		t.Fatal("corrupt cache entry must fall back to the ranking query")
	}
}

func TestInvalidateDropsAllCachedPageSizes(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: rankedUsers(5), total: 5}
	cache := newFakeCache()
	svc := NewLeaderboardService(repo, cache, time.Minute)

	if _, err := svc.GetLeaderboard(context.Background(), 10, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cache.store) != 1 {
		t.Fatalf("expected one cached page, got %d", len(cache.store))
	}

	svc.Invalidate(context.Background())
	if len(cache.store) != 0 {
		t.Fatal("invalidate must drop cached pages")
	}
	if len(cache.deleted) != len(cachedPageLimits) {
		t.Fatalf("deleted %d keys, want %d", len(cache.deleted), len(cachedPageLimits))
	}

	// After invalidation the next read hits the repo again.
	if _, err := svc.GetLeaderboard(context.Background(), 10, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("repo called %d times, want 2", repo.calls)
	}
}

func TestCachedPagesSerializeRoundTrip(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: rankedUsers(2), total: 2}
	cache := newFakeCache()
	svc := NewLeaderboardService(repo, cache, time.Minute)

	if _, err := svc.GetLeaderboard(context.Background(), 10, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, ok := cache.store["leaderboard:first_page:10"]
	if !ok {
		t.Fatal("first page not cached under the expected key")
	}
	page := &LeaderboardPage{}
	if err := json.Unmarshal([]byte(raw), page); err != nil {
		t.Fatalf("cached payload is not valid JSON: %v", err)
	}
	if page.Total != 2 || len(page.Users) != 2 {
		t.Fatalf("cached payload lost data: %+v", page)
	}
}
