// Package harness runs split conformance scenarios.
//
// A scenario loads fixture rows into one storage, runs a legacy query body
// through the split engine and checks which strategy answered, how many
// statements it issued and whether the result equals a direct execution.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: column_split_basic
//	description: "Narrow query first, then the wide one by id"
//	storage: events
//	fixtures:
//	  generate:
//	    count: 6
//	    start: "2019-09-19T10:00:00"
//	    interval: 3m
//	    projects: 3
//	    values:
//	      level: [error, warning, info]
//	  rows:
//	    - {event_id: "ff", project_id: 1, timestamp: "2019-09-19T09:00:00"}
//	split:
//	  strategies: [column_split]
//	  time: {initial_step: 10m}
//	query:
//	  selected_columns: [event_id, project_id, timestamp, level, logger, message]
//	  conditions:
//	    - [timestamp, ">=", "2019-09-19T10:00:00"]
//	    - [project_id, IN, [1, 2, 3]]
//	  orderby: [-timestamp]
//	  limit: 3
//	expect:
//	  strategy: column_split
//	  sub_queries: 2
//	  rows: 3
//	  matches_direct: true
//
// # Deterministic Testing
//
// Every scenario runs in a private in-memory SQLite database with a fixed
// query id, so the statement trace is identical across runs and can be
// compared against golden files with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/column_split_basic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
