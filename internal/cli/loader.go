package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/querydoc"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Config load or validation error
	ErrCodeCatalog     = "E003" // Storage specs failed to load
	ErrCodeParse       = "E004" // Query document or scenario did not parse
	ErrCodeNotFound    = "E005" // Path or storage not found
	ErrCodeBuildFailed = "E006" // Query document did not build
	ErrCodeWriteFailed = "E007" // File write error

	// Query checks
	ErrCodeAliases     = "E201" // Unresolvable or clashing aliases
	ErrCodeUnsupported = "E202" // Clause the SQLite store cannot run
	ErrCodeExecution   = "E203" // Query execution failed
	ErrCodeStorage     = "E204" // Storage spec fails validation
)

// LoadError is a failure to load one of the command inputs.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadCatalog returns the bundled catalog, with the storages of specsDir
// merged over it when specsDir is set.
func loadCatalog(specsDir string) (*catalog.Catalog, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCatalog, Message: "bundled storage specs", Err: err}
	}
	if specsDir == "" {
		return cat, nil
	}

	info, err := os.Stat(specsDir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", specsDir)}
	}
	if err != nil || !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", specsDir), Err: err}
	}

	extra, err := catalog.LoadDir(specsDir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCatalog, Message: fmt.Sprintf("specs in %s", specsDir), Err: err}
	}
	return cat.Merge(extra), nil
}

// loadedQuery is a parsed and built query document.
type loadedQuery struct {
	Doc     *querydoc.Document
	Storage *catalog.Storage
	Query   *query.Query
}

// loadQuery parses the document at path and builds it against its
// storage. storageName overrides the document's storage field.
func loadQuery(path, storageName string, cat *catalog.Catalog) (*loadedQuery, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query document not found: %s", path)}
	}
	doc, err := querydoc.LoadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: path, Err: err}
	}

	name := storageName
	if name == "" {
		name = doc.Storage
	}
	if name == "" {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "no storage: set --storage or the document's storage field"}
	}
	storage, err := cat.Get(name)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "unknown storage", Err: err}
	}

	q, err := querydoc.Build(doc, storage)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: "failed to build query", Err: err}
	}
	return &loadedQuery{Doc: doc, Storage: storage, Query: q}, nil
}

// outputLoadError reports err through f and converts it to an ExitError.
// Missing inputs are command errors, bad inputs are failures.
func outputLoadError(f *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
		message = loadErr.Message
		if loadErr.Err != nil {
			message += ": " + loadErr.Err.Error()
		}
	}
	if outErr := f.Error(code, message, nil); outErr != nil {
		return outErr
	}

	exit := ExitFailure
	if code == ErrCodeNotFound || code == ErrCodeCatalog || code == ErrCodeConfig {
		exit = ExitCommandError
	}
	return WrapExitError(exit, message, err)
}
