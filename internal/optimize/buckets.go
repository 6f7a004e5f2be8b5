package optimize

import "time"

// Bucket is one stage of a job: up to Parallel workers run until Cutoff.
type Bucket struct {
	Parallel int
	Cutoff   time.Time
}

// ScheduleConfig holds the offsets from midnight that shape a job's
// buckets.
type ScheduleConfig struct {
	// Cutoff ends the job.
	Cutoff time.Duration

	// ParallelStart and ParallelEnd bound the window in which more than one
	// worker may run.
	ParallelStart time.Duration
	ParallelEnd   time.Duration
}

// DefaultScheduleConfig returns the default schedule: parallel work between
// 01:00 and 04:00, nothing after 23:00.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Cutoff:        23 * time.Hour,
		ParallelStart: time.Hour,
		ParallelEnd:   4 * time.Hour,
	}
}

// BuildBuckets returns the schedule for a job starting at start.
//
// A job with parallel greater than one runs serially until the parallel
// window opens, with parallel workers until it closes, then serially again
// until the cutoff. Stages already over at start are left out.
func BuildBuckets(start time.Time, parallel int, cfg ScheduleConfig) []Bucket {
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := Bucket{Parallel: 1, Cutoff: midnight.Add(cfg.Cutoff)}

	parallelEnd := midnight.Add(cfg.ParallelEnd)
	if parallel <= 1 || start.After(parallelEnd) {
		return []Bucket{last}
	}

	var buckets []Bucket
	if parallelStart := midnight.Add(cfg.ParallelStart); !start.After(parallelStart) {
		buckets = append(buckets, Bucket{Parallel: 1, Cutoff: parallelStart})
	}
	return append(buckets, Bucket{Parallel: parallel, Cutoff: parallelEnd}, last)
}
