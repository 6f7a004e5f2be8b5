package optimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/splitq/internal/reader"
)

// Executor runs a maintenance statement against the engine.
type Executor interface {
	Exec(ctx context.Context, stmt string) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, stmt string) error

// Exec implements Executor.
func (f ExecutorFunc) Exec(ctx context.Context, stmt string) error { return f(ctx, stmt) }

// Clock supplies the current time for cutoff checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Recorder receives per-partition timings.
type Recorder interface {
	PartOptimized(tags map[string]string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) PartOptimized(map[string]string, time.Duration) {}

// DefaultMaxRetries bounds the retries of one partition's statement.
const DefaultMaxRetries = 3

// Runner optimizes the partitions of one table.
type Runner struct {
	exec     Executor
	tracker  Tracker
	database string
	table    string
	host     string

	buckets    []Bucket
	clock      Clock
	logger     *slog.Logger
	recorder   Recorder
	newBackOff func() backoff.BackOff
	maxRetries uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithBuckets sets the schedule. The default is a single serial bucket
// ending at the default cutoff of the day the job starts.
func WithBuckets(buckets []Bucket) Option {
	return func(r *Runner) { r.buckets = append([]Bucket(nil), buckets...) }
}

// WithClock sets the clock used for cutoff checks.
func WithClock(c Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHost names the engine host, for tracker keys and metric tags.
func WithHost(host string) Option {
	return func(r *Runner) { r.host = host }
}

// WithRecorder sets the timing recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithBackOff sets the retry policy factory and the retry limit.
func WithBackOff(newBackOff func() backoff.BackOff, maxRetries uint64) Option {
	return func(r *Runner) {
		if newBackOff != nil {
			r.newBackOff = newBackOff
		}
		r.maxRetries = maxRetries
	}
}

// NewRunner creates a runner for database.table.
func NewRunner(exec Executor, tracker Tracker, database, table string, opts ...Option) *Runner {
	r := &Runner{
		exec:     exec,
		tracker:  tracker,
		database: database,
		table:    table,
		clock:    systemClock{},
		logger:   slog.Default(),
		recorder: nopRecorder{},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = 20 * time.Second
			return b
		},
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Statement returns the statement that optimizes part.
func (r *Runner) Statement(part string) string {
	return fmt.Sprintf("OPTIMIZE TABLE %s.%s PARTITION %s FINAL", r.database, r.table, part)
}

// Run schedules parts and works through the pending partitions bucket by
// bucket. A bucket that reaches its cutoff hands the rest to the next one;
// when the last cutoff passes with partitions left, Run returns a
// JobTimeoutError. Other failures stop the job.
func (r *Runner) Run(ctx context.Context, parts []string) error {
	for _, p := range parts {
		if _, err := ParsePart(p); err != nil {
			return err
		}
	}
	if err := r.tracker.Schedule(ctx, parts); err != nil {
		return fmt.Errorf("schedule partitions: %w", err)
	}

	buckets := r.buckets
	if buckets == nil {
		buckets = BuildBuckets(r.clock.Now(), 1, DefaultScheduleConfig())
	}
	logger := r.logger.With("table", r.table)

	var timeout error
	for _, bucket := range buckets {
		pending, err := r.tracker.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		if !r.clock.Now().Before(bucket.Cutoff) {
			timeout = &JobTimeoutError{Table: r.table, Cutoff: bucket.Cutoff, Pending: len(pending)}
			continue
		}

		logger.Info("optimize bucket started", "parallel", bucket.Parallel, "cutoff", bucket.Cutoff, "pending", len(pending))
		err = r.runBucket(ctx, bucket, pending)
		switch {
		case err == nil:
			timeout = nil
		case IsJobTimeout(err):
			logger.Warn("optimize bucket reached cutoff", "cutoff", bucket.Cutoff)
			timeout = err
		default:
			return err
		}
	}

	pending, err := r.tracker.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	var jobErr *JobTimeoutError
	if errors.As(timeout, &jobErr) {
		jobErr.Pending = len(pending)
		return jobErr
	}
	return &JobTimeoutError{Table: r.table, Pending: len(pending)}
}

// runBucket deals pending into bucket.Parallel groups and runs them
// concurrently.
func (r *Runner) runBucket(ctx context.Context, bucket Bucket, pending []string) error {
	parallel := max(bucket.Parallel, 1)
	groups, err := SubdivideParts(pending, parallel)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		g.Go(func() error {
			return r.OptimizePartitions(gctx, group, bucket.Cutoff)
		})
	}
	return g.Wait()
}

// OptimizePartitions optimizes parts in order, one at a time. It returns a
// JobTimeoutError as soon as cutoff is reached before a partition starts.
func (r *Runner) OptimizePartitions(ctx context.Context, parts []string, cutoff time.Time) error {
	tags := MetricsTags(r.table, r.host)
	for i, part := range parts {
		if !r.clock.Now().Before(cutoff) {
			return &JobTimeoutError{Table: r.table, Cutoff: cutoff, Pending: len(parts) - i}
		}

		start := r.clock.Now()
		if err := r.optimize(ctx, part); err != nil {
			return fmt.Errorf("optimize %s partition %s: %w", r.table, part, err)
		}
		elapsed := r.clock.Now().Sub(start)
		r.recorder.PartOptimized(tags, elapsed)
		r.logger.Info("partition optimized", "table", r.table, "partition", part, "elapsed", elapsed)

		if err := r.tracker.Complete(ctx, part); err != nil {
			return fmt.Errorf("mark %s complete: %w", part, err)
		}
	}
	return nil
}

// optimize runs the statement for part, retrying transient failures.
func (r *Runner) optimize(ctx context.Context, part string) error {
	stmt := r.Statement(part)
	op := func() error {
		err := r.exec.Exec(ctx, stmt)
		if err != nil && !reader.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		r.logger.Warn("optimize failed, retrying", "table", r.table, "partition", part, "wait", wait, "error", err)
	})
}

// MetricsTags returns the metric tags for a table, with host when set.
func MetricsTags(table, host string) map[string]string {
	tags := map[string]string{"table": table}
	if host != "" {
		tags["host"] = host
	}
	return tags
}
