package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/ir"
)

// CreateTable creates the local table of a storage if it doesn't exist.
// Columns keep their declaration order; nullable columns accept NULL, the
// rest are NOT NULL with a zero default.
func (s *Store) CreateTable(ctx context.Context, storage *catalog.Storage) error {
	var defs []string
	for _, c := range storage.Schema() {
		def := quote(c.Name) + " " + sqliteType(c)
		if !c.Nullable {
			def += " NOT NULL DEFAULT " + zeroValue(c)
		}
		defs = append(defs, def)
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(storage.LocalTable()), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", storage.LocalTable(), err)
	}

	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
		quote("idx_"+storage.LocalTable()+"_time"), quote(storage.LocalTable()), quote(storage.TimeColumn()))
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create time index %s: %w", storage.LocalTable(), err)
	}
	return nil
}

func zeroValue(c catalog.Column) string {
	switch {
	case c.IsInteger(), c.Type == "Float64":
		return "0"
	case c.IsArray():
		return "'[]'"
	case c.IsDateTime():
		return "'1970-01-01T00:00:00'"
	default:
		return "''"
	}
}

// Insert writes rows into the storage's local table in one transaction.
// Row keys must be declared columns; missing columns take their default.
func (s *Store) Insert(ctx context.Context, storage *catalog.Storage, rows []ir.IRObject) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", storage.LocalTable(), err)
	}
	defer tx.Rollback()

	for i, row := range rows {
		keys := row.SortedKeys()
		cols := make([]string, len(keys))
		marks := make([]string, len(keys))
		args := make([]any, len(keys))
		for j, k := range keys {
			c, ok := storage.Column(k)
			if !ok {
				return fmt.Errorf("insert into %s: row %d: unknown column %q", storage.LocalTable(), i, k)
			}
			v, err := encodeValue(c, row[k])
			if err != nil {
				return fmt.Errorf("insert into %s: row %d: %w", storage.LocalTable(), i, err)
			}
			cols[j] = quote(k)
			marks[j] = "?"
			args[j] = v
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(storage.LocalTable()), strings.Join(cols, ", "), strings.Join(marks, ", "))
		if len(keys) == 0 {
			stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(storage.LocalTable()))
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s: row %d: %w", storage.LocalTable(), i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", storage.LocalTable(), err)
	}
	return nil
}

func quote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "") + "]"
}
