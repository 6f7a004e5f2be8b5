// Package engine implements the splitq execution strategy runner.
//
// The runner receives a logical query, tries each configured split strategy
// in order, and falls back to running the query directly when no strategy
// produces a result.
//
// ARCHITECTURE:
//
// Strategy Chain:
// Strategies are evaluated in the order given to New. Each one either
// succeeds, declines, or fails:
// 1. Success ends the chain; the result is annotated and returned
// 2. A decline moves on to the next strategy
// 3. A retryable failure is logged and counted, then the chain moves on
// 4. Any other failure ends the execution with an EXECUTION_FAILED error
//
// When the chain is exhausted the original query runs once, unmodified.
// A failed strategy is never retried by the runner.
//
// Query Identity:
// Every execution gets a query id from a QueryIDGenerator (UUIDv7 in
// production, fixed tokens in tests). Every physical query issued during
// the execution is stamped with a monotonic seq from Clock.Next(), so a
// Tracer sees sub-queries in issue order.
//
// CRITICAL PATTERNS:
//
// Deadlines:
// Before falling back after a retryable failure the runner checks the
// context. An expired deadline ends the execution with a TIMEOUT error; the
// query is not run directly in that case.
//
// Immutability:
// The runner never mutates the query it is given. Strategies rewrite clones.
package engine
