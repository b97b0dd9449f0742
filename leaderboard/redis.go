// Package leaderboard mirrors identity totals into a Redis sorted set for
// ranking. The users table stays the source of truth; the mirror is updated
// on a best-effort basis after every credited answer.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/driving-tests-backend/interfaces"
)

// DefaultKey is the sorted set holding identity totals.
const DefaultKey = "quiz:leaderboard:score"

// SortedSetClient is the subset of redis.Cmdable the leaderboard uses.
type SortedSetClient interface {
	ZAddGT(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
	ZRevRank(ctx context.Context, key, member string) *redis.IntCmd
}

var _ SortedSetClient = (redis.Cmdable)(nil)

// RedisLeaderboard implements interfaces.Leaderboard with a Redis sorted set.
type RedisLeaderboard struct {
	client SortedSetClient
	key    string
	log    *slog.Logger
}

var _ interfaces.Leaderboard = (*RedisLeaderboard)(nil)

// NewRedisLeaderboard creates a leaderboard stored under key (DefaultKey if empty).
func NewRedisLeaderboard(client SortedSetClient, key string, log *slog.Logger) *RedisLeaderboard {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisLeaderboard{
		client: client,
		key:    key,
		log:    log,
	}
}

// NewRedisClient creates a client from a redis:// or rediss:// URL and checks it is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return client, nil
}

// member encodes key as the sorted set member. The JSON form keeps the
// name boundary, so ("Ann Lee", "Smith") and ("Ann", "Lee Smith") stay distinct.
func member(key interfaces.UserKey) string {
	data, _ := json.Marshal(key)
	return string(data)
}

func parseMember(m string) (interfaces.UserKey, error) {
	var key interfaces.UserKey
	if err := json.Unmarshal([]byte(m), &key); err != nil {
		return interfaces.UserKey{}, err
	}
	if err := key.Validate(); err != nil {
		return interfaces.UserKey{}, err
	}
	return key, nil
}

// Update sets the identity's total. Totals only grow, so an out-of-order
// update carrying a smaller total never overwrites a larger one.
func (l *RedisLeaderboard) Update(ctx context.Context, key interfaces.UserKey, total uint32) error {
	err := l.client.ZAddGT(ctx, l.key, redis.Z{
		Score:  float64(total),
		Member: member(key),
	}).Err()
	if err != nil {
		return fmt.Errorf("leaderboard update: %w", err)
	}
	return nil
}

// Remove drops the identity from the leaderboard.
func (l *RedisLeaderboard) Remove(ctx context.Context, key interfaces.UserKey) error {
	if err := l.client.ZRem(ctx, l.key, member(key)).Err(); err != nil {
		return fmt.Errorf("leaderboard remove: %w", err)
	}
	return nil
}

// Top returns the n highest totals, highest first, with 1-based ranks.
// Members that do not decode to a user key are skipped.
func (l *RedisLeaderboard) Top(ctx context.Context, n int) ([]interfaces.LeaderboardEntry, error) {
	if n <= 0 {
		return []interfaces.LeaderboardEntry{}, nil
	}

	results, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}

	entries := make([]interfaces.LeaderboardEntry, 0, len(results))
	for i, result := range results {
		m, _ := result.Member.(string)
		key, err := parseMember(m)
		if err != nil {
			l.log.Warn("Skipping malformed leaderboard member", "member", result.Member, "err", err)
			continue
		}
		entries = append(entries, interfaces.LeaderboardEntry{
			Rank:  i + 1,
			User:  key,
			Score: uint32(result.Score),
		})
	}
	return entries, nil
}

// Rank returns the identity's 1-based rank, or 0 if it is not on the leaderboard.
func (l *RedisLeaderboard) Rank(ctx context.Context, key interfaces.UserKey) (int, error) {
	rank, err := l.client.ZRevRank(ctx, l.key, member(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard rank: %w", err)
	}
	return int(rank) + 1, nil
}
