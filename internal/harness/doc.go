// Package harness runs YAML scenarios against the temporal store.
//
// A scenario declares a schema, seeds live rows with setup SQL, then mutates
// the live table and invokes temporal operations step by step. Every step runs
// in its own transaction on a fresh SQLite database, with a manual clock so
// the latest flag is deterministic. Assertions check point-in-time reads,
// diffs, version summaries and latest flags once all steps ran.
//
// The trace of step outcomes and the final shadow table are serialized as
// canonical JSON and compared against golden files:
//
//	go test ./internal/harness -update
//
// regenerates testdata/golden/*.golden.
package harness
