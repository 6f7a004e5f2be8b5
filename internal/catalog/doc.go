// Package catalog declares the storages queries run against.
//
// Storages are specified in CUE under a top-level storage struct and
// compiled with the CUE Go API. Each storage lists its ordered columns with
// a type and a nullable modifier, its required time column, its local and
// distributed table names, its partition key and the columns the split
// strategies operate on:
//
//	storage: events: {
//		local_table: "errors_local"
//		dist_table:  "errors_dist"
//		time_column: "timestamp"
//		columns: [{name: "event_id", type: "String"}, ...]
//		split: {id_column: "event_id", project_column: "project_id", timestamp_column: "timestamp"}
//		partition: ["retention_days", "toMonday(timestamp)"]
//	}
//
// The events, transactions and functions storages are built in; LoadDir
// reads additional specs, which are checked against the same schema.
package catalog
