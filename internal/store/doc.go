// Package store is a SQLite stand-in for the columnar engine.
//
// Fixture tables are created from catalog storages with CreateTable and
// filled with Insert. Runner compiles physical queries through querysql and
// answers them from those tables, so split execution can be checked against
// direct execution on real rows.
//
// # Value Encoding
//
//   - DateTime columns are TEXT in ir.DateTimeLayout; lexical order is time order
//   - Array columns are canonical JSON TEXT
//   - Integers and booleans are INTEGER
//
// # Query Log
//
// Every statement issued through Runner is appended to query_log with a
// fingerprint over its SQL and parameters, in issue order (seq). QueryLog
// reads it back for traces and tests.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - One connection: keeps ":memory:" databases alive across calls
package store
