package optimize

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every key written by RedisTracker.
const RedisKeyPrefix = "splitq:optimize"

// RedisTracker keeps job state in two Redis sets per table and host, so a
// job restarted on the same host resumes. Both sets expire at expireAt.
type RedisTracker struct {
	client    redis.UniversalClient
	scheduled string
	completed string
	expireAt  time.Time
}

// NewRedisTracker creates a tracker for one table on one host.
func NewRedisTracker(client redis.UniversalClient, host, database, table string, expireAt time.Time) *RedisTracker {
	base := fmt.Sprintf("%s:%s:%s:%s", RedisKeyPrefix, host, database, table)
	return &RedisTracker{
		client:    client,
		scheduled: base + ":scheduled",
		completed: base + ":completed",
		expireAt:  expireAt,
	}
}

func (t *RedisTracker) add(ctx context.Context, key string, members []string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, args...)
		pipe.ExpireAt(ctx, key, t.expireAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	return nil
}

func (t *RedisTracker) Schedule(ctx context.Context, parts []string) error {
	return t.add(ctx, t.scheduled, parts)
}

func (t *RedisTracker) Complete(ctx context.Context, part string) error {
	return t.add(ctx, t.completed, []string{part})
}

func (t *RedisTracker) Pending(ctx context.Context) ([]string, error) {
	parts, err := t.client.SDiff(ctx, t.scheduled, t.completed).Result()
	if err != nil {
		return nil, fmt.Errorf("read pending partitions: %w", err)
	}
	slices.Sort(parts)
	return parts, nil
}

func (t *RedisTracker) Completed(ctx context.Context) ([]string, error) {
	parts, err := t.client.SMembers(ctx, t.completed).Result()
	if err != nil {
		return nil, fmt.Errorf("read completed partitions: %w", err)
	}
	slices.Sort(parts)
	return parts, nil
}

func (t *RedisTracker) Reset(ctx context.Context) error {
	if err := t.client.Del(ctx, t.scheduled, t.completed).Err(); err != nil {
		return fmt.Errorf("reset tracker: %w", err)
	}
	return nil
}
