// Package temporal is the versioning engine of nodeversion.
//
// A Versioner is bound to one registered table and a record set (a predicate
// fragment plus its parameters). It snapshots live rows into the table's
// shadow table and answers questions about history:
//
//   - GetVersionData: the rows as they were at a timestamp (-1 = live state)
//   - GetDiff: per-row ADD / MOD / DEL between two timestamps
//   - CreateVersion: full writer; versions may be inserted before or between
//     existing versions and later history is re-chained
//   - CreateVersion2: append-only writer driven by GetDiff
//   - RestoreVersion: replace live rows with a past state
//   - PurgeVersions: drop history older than a cutoff without changing any
//     read at or after it
//   - SetLatestFlag: keep one latest shadow row per record
//
// # Shadow rows
//
// Each shadow row holds the versioned columns plus nodeversiontimestamp (when
// the snapshot took effect), nodeversion_user, nodeversionlatest and
// nodeversionremoved. A record is present at time t when its shadow row with
// the greatest timestamp <= t has nodeversionremoved = 0 or > t. Deleting a
// record writes a copy of its last state with nodeversionremoved equal to the
// deletion time.
//
// # Transactions
//
// Every operation takes a sqlx.ExtContext, normally the caller's *sqlx.Tx.
// The Versioner never begins, commits or rolls back, and never retries: the
// first failed statement is returned as a *StoreError and the caller is
// expected to abandon the transaction. Concurrent writes to the same records
// must be serialized by the caller.
package temporal
