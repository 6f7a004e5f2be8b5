package store

import (
	"context"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/splitq/internal/reader"
)

// classify maps a driver error to the reader taxonomy. Lock contention and
// context expiry are transport failures; everything else is a failure of
// the statement.
func classify(err error, stmt string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &reader.TransportError{Op: "query", Err: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return &reader.TransportError{Op: "query", Err: err}
		case sqlite3.ErrInterrupt:
			return &reader.TransportError{Op: "query", Err: err}
		}
		return &reader.EngineError{
			Code:    int(sqliteErr.Code),
			Message: sqliteErr.Error(),
			SQL:     stmt,
			Err:     err,
		}
	}

	return &reader.EngineError{Message: err.Error(), SQL: stmt, Err: err}
}
