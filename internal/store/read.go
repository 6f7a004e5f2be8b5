package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/querysql"
	"github.com/roach88/splitq/internal/reader"
)

// ExtraSQL is the result annotation holding the executed statement. It is
// only set when reader.Settings.Debug is on.
const ExtraSQL = "sql"

// LoggedQuery is one statement issued through Runner.
type LoggedQuery struct {
	Seq         int64
	Fingerprint string
	Storage     string
	SQL         string
	Params      string
	Rows        int
	Error       string
}

// Runner returns a reader.Runner that compiles physical queries to SQLite
// and scans the rows into IR objects. Every statement is recorded in the
// query log.
//
// Errors are classified for the strategy runner: failures of the statement
// become reader.EngineError, lock contention and context expiry become
// reader.TransportError.
func (s *Store) Runner() reader.Runner {
	compiler := querysql.NewSQLCompiler()
	return func(ctx context.Context, q *query.Query, settings reader.Settings) (*reader.Result, error) {
		stmt, params, err := compiler.Compile(q)
		if err != nil {
			if errors.Is(err, querysql.ErrUnsupported) {
				return nil, &reader.EngineError{Message: err.Error(), Err: err}
			}
			return nil, fmt.Errorf("compile query: %w", err)
		}
		source, _ := q.DataSource()

		data, err := s.scan(ctx, source, stmt, params)

		entry := LoggedQuery{Storage: source.Name(), SQL: stmt, Rows: len(data)}
		if err != nil {
			entry.Error = err.Error()
		}
		if logErr := s.logQuery(context.WithoutCancel(ctx), entry, params); logErr != nil && err == nil {
			return nil, logErr
		}
		if err != nil {
			return nil, classify(err, stmt)
		}

		res := reader.NewResult(data)
		if settings.Debug {
			res = res.WithExtra(ExtraSQL, ir.IRString(stmt))
		}
		return res, nil
	}
}

// scan runs stmt and converts every row. Rows are closed before it returns,
// so the single connection is free for the query log.
func (s *Store) scan(ctx context.Context, source query.DataSource, stmt string, params []any) ([]ir.IRObject, error) {
	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	storage, _ := source.(*catalog.Storage)
	types := make([]*catalog.Column, len(names))
	if storage != nil {
		for i, name := range names {
			if c, ok := storage.Column(name); ok {
				types[i] = &c
			}
		}
	}

	data := []ir.IRObject{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(ir.IRObject, len(names))
		for i, name := range names {
			v, err := decodeValue(types[i], values[i])
			if err != nil {
				return nil, err
			}
			row[name] = v
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// logQuery appends a statement to the query log, fingerprinted over its
// text and parameters.
func (s *Store) logQuery(ctx context.Context, entry LoggedQuery, params []any) error {
	irParams := querysql.ParamsIR(params)
	fingerprint, err := ir.Fingerprint(entry.SQL, irParams)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	paramsJSON, err := ir.MarshalCanonical(irParams)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log (fingerprint, storage, sql, params, rows, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, fingerprint, entry.Storage, entry.SQL, string(paramsJSON), entry.Rows, entry.Error)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	return nil
}

// QueryLog returns every logged statement in issue order.
//
// Returns an empty slice (not nil) if nothing was logged.
func (s *Store) QueryLog(ctx context.Context) ([]LoggedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, fingerprint, storage, sql, params, rows, error
		FROM query_log
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	log := []LoggedQuery{}
	for rows.Next() {
		var e LoggedQuery
		if err := rows.Scan(&e.Seq, &e.Fingerprint, &e.Storage, &e.SQL, &e.Params, &e.Rows, &e.Error); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		log = append(log, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log: %w", err)
	}
	return log, nil
}

// ResetQueryLog deletes all logged statements.
func (s *Store) ResetQueryLog(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM query_log`); err != nil {
		return fmt.Errorf("reset query log: %w", err)
	}
	return nil
}

