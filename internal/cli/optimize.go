package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/splitq/internal/metrics"
	"github.com/roach88/splitq/internal/optimize"
)

// OptimizeOptions holds flags for the optimize commands.
type OptimizeOptions struct {
	*RootOptions
	Parts    []string
	N        int
	Database string
	Table    string
	Parallel int
	Host     string

	// Now overrides the job clock (for testing).
	Now func() time.Time
}

// SubdivideOutput is the result of optimize subdivide.
type SubdivideOutput struct {
	Groups [][]string `json:"groups"`
}

// OptimizeRunOutput is the result of optimize run.
type OptimizeRunOutput struct {
	Statements []string `json:"statements"`
	Completed  int      `json:"completed"`
	Pending    int      `json:"pending"`
	TimedOut   bool     `json:"timed_out,omitempty"`
}

// NewOptimizeCommand creates the optimize command group.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptimizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Plan partition optimize jobs",
	}
	cmd.PersistentFlags().StringArrayVar(&opts.Parts, "parts", nil, "partition names, e.g. (90,'2019-09-16')")

	subdivide := &cobra.Command{
		Use:   "subdivide",
		Short: "Split partitions into groups for parallel workers",
		Long: `Split partitions into N groups, newest data first, dealt round-robin.

Example:
  splitq optimize subdivide --parts "(90,'2019-09-16')" --parts "(30,'2019-09-17')" -n 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubdivide(opts, cmd)
		},
	}
	subdivide.Flags().IntVarP(&opts.N, "subdivisions", "n", 1, "number of groups")

	run := &cobra.Command{
		Use:   "run",
		Short: "Walk an optimize job and print its statements",
		Long: `Walk an optimize job through its parallel buckets and print the
OPTIMIZE statement for every partition, in the order the job reaches them.

Job progress is kept in Redis when optimize.redis_addr is configured, so a
restarted job skips the partitions it already emitted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOptimize(opts, cmd)
		},
	}
	run.Flags().StringVar(&opts.Database, "database", "default", "database name")
	run.Flags().StringVar(&opts.Table, "table", "errors_local", "local table name")
	run.Flags().IntVar(&opts.Parallel, "parallel", 0, "workers in the parallel window (0 uses the config)")
	run.Flags().StringVar(&opts.Host, "host", "", "host the job runs on (defaults to the hostname)")

	cmd.AddCommand(subdivide, run)
	return cmd
}

func runSubdivide(opts *OptimizeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	groups, err := optimize.SubdivideParts(opts.Parts, opts.N)
	if err != nil {
		if outErr := formatter.Error(ErrCodeParse, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "failed to subdivide partitions", err)
	}

	out := SubdivideOutput{Groups: groups}
	return formatter.Respond(CLIResponse{Status: "ok", Data: out}, func(w io.Writer) {
		for i, g := range groups {
			fmt.Fprintf(w, "%d: %s\n", i, strings.Join(g, " "))
		}
	})
}

func runOptimize(opts *OptimizeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd.ErrOrStderr(), cfg)

	for _, p := range opts.Parts {
		if _, err := optimize.ParsePart(p); err != nil {
			if outErr := formatter.Error(ErrCodeParse, err.Error(), nil); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitFailure, "invalid partition", err)
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	host := opts.Host
	if host == "" {
		if host, err = os.Hostname(); err != nil {
			return WrapExitError(ExitCommandError, "failed to read hostname", err)
		}
	}
	parallel := opts.Parallel
	if parallel == 0 {
		parallel = cfg.Optimize.Parallel
	}
	buckets := optimize.BuildBuckets(now(), parallel, cfg.ScheduleConfig())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var tracker optimize.Tracker = optimize.NewMemoryTracker()
	if cfg.Optimize.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Optimize.RedisAddr})
		defer client.Close()
		expireAt := buckets[len(buckets)-1].Cutoff
		tracker = optimize.NewRedisTracker(client, host, opts.Database, opts.Table, expireAt)
		logger.Debug("tracking optimize job in redis", "addr", cfg.Optimize.RedisAddr)
	}

	var (
		mu         sync.Mutex
		statements []string
	)
	exec := optimize.ExecutorFunc(func(_ context.Context, stmt string) error {
		mu.Lock()
		defer mu.Unlock()
		statements = append(statements, stmt)
		return nil
	})

	runner := optimize.NewRunner(exec, tracker, opts.Database, opts.Table,
		optimize.WithBuckets(buckets),
		optimize.WithClock(clockFunc(now)),
		optimize.WithLogger(logger),
		optimize.WithHost(host),
		optimize.WithRecorder(metrics.Default()),
	)

	runErr := runner.Run(ctx, opts.Parts)
	if runErr != nil && !optimize.IsJobTimeout(runErr) {
		if outErr := formatter.Error(ErrCodeExecution, runErr.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "optimize job failed", runErr)
	}

	completed, err := tracker.Completed(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read job state", err)
	}
	pending, err := tracker.Pending(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read job state", err)
	}

	out := OptimizeRunOutput{
		Statements: statements,
		Completed:  len(completed),
		Pending:    len(pending),
		TimedOut:   runErr != nil,
	}
	resp := CLIResponse{Status: "ok", Data: out}
	err = formatter.Respond(resp, func(w io.Writer) {
		for _, stmt := range statements {
			fmt.Fprintf(w, "%s;\n", stmt)
		}
		if out.TimedOut {
			fmt.Fprintf(w, "-- cutoff reached with %d partition(s) pending\n", out.Pending)
		}
	})
	if err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "optimize job timed out", runErr)
	}
	return nil
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }
