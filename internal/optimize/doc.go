// Package optimize schedules OPTIMIZE ... FINAL maintenance over table
// partitions.
//
// Partitions are named "(retention,'YYYY-MM-DD')". A job walks a schedule
// of buckets, each with a worker count and a cutoff time: the partitions
// still pending are split round-robin into one group per worker, newest
// first, and every group runs its partitions one at a time until the
// bucket's cutoff. A Tracker remembers which partitions were scheduled and
// which completed, so an interrupted job resumes where it stopped.
package optimize
