package optimize

import (
	"context"
	"slices"
	"sync"
)

// Tracker records which partitions of a job were scheduled and which
// completed.
type Tracker interface {
	// Schedule adds parts to the scheduled set.
	Schedule(ctx context.Context, parts []string) error

	// Complete marks part as optimized.
	Complete(ctx context.Context, part string) error

	// Pending returns the scheduled parts not yet completed, sorted.
	Pending(ctx context.Context) ([]string, error)

	// Completed returns the completed parts, sorted.
	Completed(ctx context.Context) ([]string, error)

	// Reset forgets all state.
	Reset(ctx context.Context) error
}

// MemoryTracker is a process-local Tracker.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryTracker struct {
	mu        sync.Mutex
	scheduled map[string]struct{}
	completed map[string]struct{}
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		scheduled: make(map[string]struct{}),
		completed: make(map[string]struct{}),
	}
}

func (t *MemoryTracker) Schedule(_ context.Context, parts []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range parts {
		t.scheduled[p] = struct{}{}
	}
	return nil
}

func (t *MemoryTracker) Complete(_ context.Context, part string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed[part] = struct{}{}
	return nil
}

func (t *MemoryTracker) Pending(context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []string{}
	for p := range t.scheduled {
		if _, done := t.completed[p]; !done {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (t *MemoryTracker) Completed(context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []string{}
	for p := range t.completed {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func (t *MemoryTracker) Reset(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.scheduled)
	clear(t.completed)
	return nil
}
