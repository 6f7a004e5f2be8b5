package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// eventsStorage returns the bundled events storage.
func eventsStorage(t *testing.T) *catalog.Storage {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() failed: %v", err)
	}
	storage, err := c.Get("events")
	if err != nil {
		t.Fatalf("Get(events) failed: %v", err)
	}
	return storage
}

var fixtureStart = time.Date(2019, 9, 19, 10, 0, 0, 0, time.UTC)

// eventRows returns n events three minutes apart starting at fixtureStart,
// spread over projects 1, 2 and 3. Timestamps are unique.
func eventRows(n int) []ir.IRObject {
	levels := []string{"error", "warning", "info"}
	rows := make([]ir.IRObject, n)
	for i := range rows {
		rows[i] = ir.IRObject{
			"event_id":       ir.IRString(fmt.Sprintf("%032x", i+1)),
			"project_id":     ir.IRInt(i%3 + 1),
			"timestamp":      ir.NewDateTime(fixtureStart.Add(time.Duration(i) * 3 * time.Minute)),
			"platform":       ir.IRString("python"),
			"level":          ir.IRString(levels[i%len(levels)]),
			"logger":         ir.IRString("root"),
			"server_name":    ir.IRString(fmt.Sprintf("web-%d", i%4)),
			"transaction":    ir.IRString(fmt.Sprintf("/api/%d", i%5)),
			"message":        ir.IRString(fmt.Sprintf("message %d", i)),
			"retention_days": ir.IRInt(90),
			"tags.key":       ir.IRArray{ir.IRString("browser"), ir.IRString("os")},
			"tags.value":     ir.IRArray{ir.IRString("firefox"), ir.IRString(fmt.Sprintf("linux-%d", i%2))},
		}
	}
	return rows
}

// loadEvents creates the events table and inserts n fixture events.
func loadEvents(t *testing.T, s *Store, n int) *catalog.Storage {
	t.Helper()
	storage := eventsStorage(t)
	ctx := context.Background()
	if err := s.CreateTable(ctx, storage); err != nil {
		t.Fatalf("CreateTable() failed: %v", err)
	}
	if err := s.Insert(ctx, storage, eventRows(n)); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	return storage
}
