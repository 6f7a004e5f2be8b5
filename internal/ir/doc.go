// Package ir provides the value types shared by the query model, the
// storage readers and the split strategies.
//
// This package contains value definitions only. All other internal
// packages import ir; ir imports nothing internal. This keeps IR the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - IRValue is sealed: literals in expressions and cells in result rows
//     use the same closed set of types
//   - Datetimes have second granularity and are always UTC
//   - Result rows are IRObject values; column order inside a row is
//     irrelevant, use SortedKeys for deterministic iteration
//   - Canonical JSON (RFC 8785 style) is the only encoding used for hashing
package ir
