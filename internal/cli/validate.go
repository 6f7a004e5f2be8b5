package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/querysql"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                      `json:"valid"`
	Errors []catalog.ValidationError `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Storage string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <doc.yaml>",
		Short: "Validate a query document without running it",
		Long: `Validate a query document against its storage without running it.

Checks that the document builds, that every referenced symbol is a column
or a declared alias, that the SQLite store can run it, and that the
storage spec itself is sound.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Storage, "storage", "", "storage name (overrides the document)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := loadCatalog(opts.SpecsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	loaded, err := loadQuery(path, opts.Storage, cat)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Validating %s against storage %s", path, loaded.Storage.Name())

	errs := ValidateQuery(loaded.Query)
	for _, e := range catalog.Validate(loaded.Storage) {
		e.Code = ErrCodeStorage + " " + e.Code
		errs = append(errs, e)
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	return formatter.Respond(CLIResponse{Status: "ok", Data: ValidationResult{Valid: true}}, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Query valid")
	})
}

// ValidateQuery runs the alias and dialect checks on a built query.
func ValidateQuery(q *query.Query) []catalog.ValidationError {
	var errs []catalog.ValidationError

	if err := q.ValidateOrError(); err != nil {
		msg := err.Error()
		var qErr *query.Error
		if errors.As(err, &qErr) && len(qErr.Unresolved) > 0 {
			msg = "undeclared symbols: " + strings.Join(qErr.Unresolved, ", ")
		}
		errs = append(errs, catalog.ValidationError{Field: "aliases", Message: msg, Code: ErrCodeAliases})
	}

	if _, _, err := querysql.NewSQLCompiler().Compile(q); errors.Is(err, querysql.ErrUnsupported) {
		errs = append(errs, catalog.ValidationError{Field: "sqlite", Message: err.Error(), Code: ErrCodeUnsupported})
	}

	return errs
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []catalog.ValidationError) error {
	resp := CLIResponse{
		Status: "error",
		Data:   ValidationResult{Valid: false, Errors: errs},
		Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
	}
	err := formatter.Respond(resp, func(w io.Writer) {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range errs {
			fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
		}
	})
	if err != nil {
		return err
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
