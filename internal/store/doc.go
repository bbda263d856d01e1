// Package store opens the SQLite database that holds versioned tables and
// their shadow tables.
//
// The store owns connection setup and DDL. Temporal operations never open
// transactions themselves: callers obtain one through WithTx and pass it to
// a temporal.Versioner.
//
// # Shadow tables
//
// EnsureShadowTable derives a shadow table from registry metadata: every
// versioned column plus the control columns, with UNIQUE(id,
// nodeversiontimestamp) so one id has at most one row per timestamp. Each
// created shadow table is recorded in nodeversion_tables.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
