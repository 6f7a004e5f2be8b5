package optimize

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stvp/tempredis"

	"github.com/roach88/splitq/internal/testutil"
)

// trackerContract exercises the behaviour every Tracker shares.
func trackerContract(t *testing.T, tracker Tracker) {
	t.Helper()
	ctx := context.Background()

	pending, err := tracker.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, tracker.Schedule(ctx, []string{"(90,'2022-03-28')", "(90,'2022-03-21')", "(30,'2022-03-28')"}))
	require.NoError(t, tracker.Schedule(ctx, []string{"(90,'2022-03-28')"}))
	require.NoError(t, tracker.Schedule(ctx, nil))

	pending, err = tracker.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"(30,'2022-03-28')", "(90,'2022-03-21')", "(90,'2022-03-28')"}, pending)

	require.NoError(t, tracker.Complete(ctx, "(90,'2022-03-21')"))
	pending, err = tracker.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"(30,'2022-03-28')", "(90,'2022-03-28')"}, pending)

	completed, err := tracker.Completed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"(90,'2022-03-21')"}, completed)

	require.NoError(t, tracker.Reset(ctx))
	pending, err = tracker.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	completed, err = tracker.Completed(ctx)
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestMemoryTracker(t *testing.T) {
	trackerContract(t, NewMemoryTracker())
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	server, err := tempredis.Start(tempredis.Config{})
	if err != nil {
		t.Skipf("redis-server not available: %v", err)
	}
	t.Cleanup(func() { server.Term() })

	client := redis.NewClient(&redis.Options{
		Network: "unix",
		Addr:    server.Socket(),
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisTracker(t *testing.T) {
	client := startRedis(t)
	tracker := NewRedisTracker(client, "some-hostname.domain.com", "default", "errors_local", time.Now().Add(10*time.Minute))
	trackerContract(t, tracker)
}

func TestRedisTracker_KeysExpire(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	tracker := NewRedisTracker(client, "h", "default", "errors_local", time.Now().Add(10*time.Minute))
	require.NoError(t, tracker.Schedule(ctx, []string{"(90,'2022-03-28')"}))

	ttl, err := client.TTL(ctx, RedisKeyPrefix+":h:default:errors_local:scheduled").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 10*time.Minute)
}

func TestRedisTracker_SeparatesTables(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	expire := time.Now().Add(10 * time.Minute)
	errorsTracker := NewRedisTracker(client, "h", "default", "errors_local", expire)
	transactions := NewRedisTracker(client, "h", "default", "transactions_local", expire)

	require.NoError(t, errorsTracker.Schedule(ctx, []string{"(90,'2022-03-28')"}))
	pending, err := transactions.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunner_WithRedisTracker(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	clock := testutil.NewFixedClock(jobStart)
	tracker := NewRedisTracker(client, "h", "default", "errors_local", time.Now().Add(10*time.Minute))
	exec := &recordingExecutor{}
	r := newTestRunner(exec, tracker, clock, WithBuckets([]Bucket{{Parallel: 2, Cutoff: jobStart.Add(time.Hour)}}))

	require.NoError(t, r.Run(ctx, sixParts))
	assert.Len(t, exec.statements(), len(sixParts))

	// A second run finds nothing left
	require.NoError(t, r.Run(ctx, nil))
	assert.Len(t, exec.statements(), len(sixParts))
	require.NoError(t, tracker.Reset(ctx))
}
