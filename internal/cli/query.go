package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/splitq/internal/engine"
	"github.com/roach88/splitq/internal/harness"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/metrics"
	"github.com/roach88/splitq/internal/split"
	"github.com/roach88/splitq/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Storage  string
	Fixtures string
	NoSplit  bool
	Timeout  time.Duration

	// IDGenerator overrides the query id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.QueryIDGenerator
}

// QueryOutput is the payload of a query run.
type QueryOutput struct {
	Strategy   string        `json:"strategy"`
	SubQueries int           `json:"sub_queries"`
	Rows       []ir.IRObject `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <doc.yaml>",
		Short: "Run a query document through the split engine",
		Long: `Run a query document against a SQLite database through the split
strategies, falling back to direct execution.

The storage table is created if missing. --fixtures loads rows from a
fixtures file (the fixtures block of a scenario) before the query runs.

Example:
  splitq query --db ./events.db ./queries/recent.yaml
  splitq query --fixtures ./fixtures.yaml --storage events ./queries/recent.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", ":memory:", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Storage, "storage", "", "storage name (overrides the document)")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "fixtures file to load before querying")
	cmd.Flags().BoolVar(&opts.NoSplit, "no-split", false, "run the query directly")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "query deadline (0 means none)")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd.ErrOrStderr(), cfg)

	cat, err := loadCatalog(opts.SpecsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	loaded, err := loadQuery(path, opts.Storage, cat)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.CreateTable(ctx, loaded.Storage); err != nil {
		return WrapExitError(ExitCommandError, "failed to create table", err)
	}
	if opts.Fixtures != "" {
		if err := loadFixtureFile(ctx, st, loaded, opts.Fixtures); err != nil {
			return WrapExitError(ExitCommandError, "failed to load fixtures", err)
		}
	}
	if err := st.ResetQueryLog(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to reset query log", err)
	}

	m := metrics.Default()
	column, timeCfg := cfg.StrategySettings()
	strategies := loaded.Storage.SplitStrategies(column, timeCfg,
		split.WithLogger(logger),
		split.WithRecorder(m),
	)
	engineOpts := []engine.Option{engine.WithLogger(logger), engine.WithMetrics(m)}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	eng := engine.New(strategies, engineOpts...)

	settings := loaded.Doc.Settings(cfg.Split.UseSplit && !opts.NoSplit)
	res, err := eng.Execute(ctx, loaded.Query, settings, st.Runner())
	if err != nil {
		if outErr := formatter.Error(ErrCodeExecution, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "query failed", err)
	}

	log, err := st.QueryLog(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read query log", err)
	}
	for _, entry := range log {
		formatter.VerboseLog("[%d] rows=%d %s %s", entry.Seq, entry.Rows, entry.SQL, entry.Params)
	}

	out := QueryOutput{
		Strategy:   extraString(res.Extra, engine.ExtraStrategy),
		SubQueries: len(log),
		Rows:       res.Data,
	}
	resp := CLIResponse{Status: "ok", Data: out, QueryID: extraString(res.Extra, engine.ExtraQueryID)}
	return formatter.Respond(resp, func(w io.Writer) {
		fmt.Fprintf(w, "strategy: %s\n", out.Strategy)
		fmt.Fprintf(w, "sub_queries: %d\n", out.SubQueries)
		fmt.Fprintf(w, "rows: %d\n", len(out.Rows))
		for _, row := range out.Rows {
			data, err := ir.MarshalCanonical(row)
			if err != nil {
				fmt.Fprintf(w, "<%v>\n", err)
				continue
			}
			fmt.Fprintln(w, string(data))
		}
	})
}

func loadFixtureFile(ctx context.Context, st *store.Store, loaded *loadedQuery, path string) error {
	fixtures, err := harness.LoadFixtures(path)
	if err != nil {
		return err
	}
	rows, err := harness.FixtureRows(loaded.Storage, fixtures)
	if err != nil {
		return err
	}
	return st.Insert(ctx, loaded.Storage, rows)
}

func extraString(extra ir.IRObject, key string) string {
	if s, ok := extra[key].(ir.IRString); ok {
		return string(s)
	}
	return ""
}
