// Package split implements query split strategies: algorithms that trade one
// expensive query for one or more cheaper sub-queries that together produce
// the same rows.
//
// CONTRACT:
//
// A Strategy is handed a physical query, the caller's settings and a Runner.
// TryExecute has three outcomes:
//
//	res, true, nil    the strategy executed the query; res is final
//	nil, false, nil   the strategy does not apply; no result escapes
//	nil, false, err   a sub-query failed; no partial result escapes
//
// Whether err allows falling back to another strategy is decided by
// reader.Classify. Strategies never mutate the query they receive; each
// sub-query is built from a clone.
//
// STRATEGIES:
//
// ColumnSplit narrows a wide query to its identifying columns (id, project,
// timestamp), runs it, and re-issues the wide query restricted to the
// returned (project, id) pairs. It declines with too many intermediate
// results only after the narrow query has run, unlike every other decline.
//
// TimeSplit walks a bounded time range from newest to oldest in growing
// windows and stops as soon as enough rows were collected.
package split
