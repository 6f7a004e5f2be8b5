package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/splitq/internal/querysql"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Storage   string
	Anonymize bool
}

// ExplainOutput is the rendered SQL of a query document.
type ExplainOutput struct {
	ClickHouse string `json:"clickhouse"`
	SQLite     string `json:"sqlite,omitempty"`
	Params     []any  `json:"params,omitempty"`

	// Unsupported explains why there is no SQLite rendering.
	Unsupported string `json:"unsupported,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <doc.yaml>",
		Short: "Print the SQL of a query document",
		Long: `Print the ClickHouse SQL of a query document against the distributed
table, and the parameterized SQLite statement the fixture store runs.

--anonymize replaces every literal with a placeholder, as in logs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Storage, "storage", "", "storage name (overrides the document)")
	cmd.Flags().BoolVar(&opts.Anonymize, "anonymize", false, "replace literals with placeholders")

	return cmd
}

func runExplain(opts *ExplainOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := loadCatalog(opts.SpecsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	loaded, err := loadQuery(path, opts.Storage, cat)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	format := querysql.FormatQuery
	if opts.Anonymize {
		format = querysql.FormatQueryAnonymized
	}
	var out ExplainOutput
	if out.ClickHouse, err = format(loaded.Query); err != nil {
		return WrapExitError(ExitFailure, "failed to format query", err)
	}

	// Literal values are only shown when not anonymizing.
	stmt, params, err := querysql.NewSQLCompiler().Compile(loaded.Query)
	switch {
	case errors.Is(err, querysql.ErrUnsupported):
		out.Unsupported = err.Error()
	case err != nil:
		return WrapExitError(ExitFailure, "failed to compile query", err)
	default:
		out.SQLite = stmt
		if !opts.Anonymize {
			out.Params = params
		}
	}

	return formatter.Respond(CLIResponse{Status: "ok", Data: out}, func(w io.Writer) {
		fmt.Fprintf(w, "clickhouse: %s\n", out.ClickHouse)
		if out.Unsupported != "" {
			fmt.Fprintf(w, "sqlite: unsupported (%s)\n", out.Unsupported)
			return
		}
		fmt.Fprintf(w, "sqlite: %s\n", out.SQLite)
		if out.Params != nil {
			fmt.Fprintf(w, "params: %v\n", out.Params)
		}
	})
}
