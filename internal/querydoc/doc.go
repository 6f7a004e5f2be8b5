// Package querydoc reads legacy query bodies written as YAML and builds
// logical queries from them.
//
// A document looks like:
//
//	selected_columns: [event_id, level, timestamp, project_id]
//	conditions:
//	  - [timestamp, ">=", "2019-09-19T10:00:00"]
//	  - [timestamp, "<", "2019-09-19T12:00:00"]
//	  - [project_id, IN, [1, 2, 3]]
//	  - [[level, "=", error], [level, "=", fatal]]
//	orderby: [-timestamp]
//	limit: 10
//
// A nested list of triples in conditions is an OR group. An orderby entry
// with a leading "-" sorts descending.
package querydoc
