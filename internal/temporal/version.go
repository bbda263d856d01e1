package temporal

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/querysql"
)

// CreateVersion writes the live rows of the record set as the version at
// timestamp at. Unlike CreateVersion2 the timestamp may precede or fall
// between existing versions: later versions are re-chained so every read at
// or after them is unchanged.
//
// futureOrPast marks the written rows as not latest; the latest flag is
// recomputed against the clock before returning either way.
//
// Returns whether any shadow row was written.
func (v *Versioner) CreateVersion(ctx context.Context, q sqlx.ExtContext, params []any, at, user int64, futureOrPast bool) (bool, error) {
	if err := v.ready(); err != nil {
		return false, err
	}
	op := v.begin("create_version")

	n, err := v.createVersion(ctx, q, params, at, user, futureOrPast)
	if err == nil {
		err = v.setLatestFlag(ctx, q, params)
	}
	op.end(n, err)
	if err != nil {
		return false, err
	}
	if n > 0 {
		v.metrics.VersionCreated(v.table.Name, "full")
	}
	return n > 0, nil
}

// laterVersion is the reconstruction of a version that follows the one being
// written.
type laterVersion struct {
	at   int64
	rows []Row
}

// createVersion writes the version at at, then re-chains every later version
// against it. All later versions are reconstructed before anything is written
// so each one is rebuilt from the history as it was. The live rows are swapped
// for each reconstruction in turn and are put back on every exit path.
func (v *Versioner) createVersion(ctx context.Context, q sqlx.ExtContext, params []any, at, user int64, futureOrPast bool) (written int, err error) {
	later, err := v.laterVersions(ctx, q, params, at)
	if err != nil {
		return 0, err
	}

	written, err = v.writeChanges(ctx, q, params, at, user, futureOrPast)
	if err != nil || len(later) == 0 {
		return written, err
	}

	holder, err := v.swapLive(ctx, q, params, later[0].rows)
	if err != nil {
		return written, err
	}
	defer func() {
		err = errors.Join(err, holder.release(ctx))
	}()

	for i, lv := range later {
		if i > 0 {
			if err := v.replaceLive(ctx, q, params, lv.rows); err != nil {
				return written, err
			}
		}
		n, err := v.writeChanges(ctx, q, params, lv.at, user, true)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// laterVersions reconstructs, in ascending order, every version after at.
func (v *Versioner) laterVersions(ctx context.Context, q sqlx.ExtContext, params []any, at int64) ([]laterVersion, error) {
	var out []laterVersion
	for {
		next, ok, err := v.nextTimestamp(ctx, q, params, at)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		rows, err := v.readAt(ctx, q, params, next)
		if err != nil {
			return nil, err
		}
		out = append(out, laterVersion{at: next, rows: rows})
		at = next
	}
}

// nextTimestamp returns the first version timestamp after at.
func (v *Versioner) nextTimestamp(ctx context.Context, q sqlx.ExtContext, params []any, at int64) (int64, bool, error) {
	stmt := v.builder().NextTimestamp(params, at)
	var next sql.NullInt64
	if err := q.QueryRowxContext(ctx, stmt.SQL, stmt.Args...).Scan(&next); err != nil {
		return 0, false, v.storeErr("read next version", err)
	}
	return next.Int64, next.Valid, nil
}

// writeChanges records the difference between the version in effect at at and
// the live rows as shadow rows at at.
func (v *Versioner) writeChanges(ctx context.Context, q sqlx.ExtContext, params []any, at, user int64, futureOrPast bool) (int, error) {
	diffs, err := v.diff(ctx, q, params, at, Current)
	if err != nil {
		return 0, err
	}
	if len(diffs) == 0 {
		return 0, nil
	}

	b := v.builder()
	_, err = v.byIDs(ctx, q, "delete conflicting version", diffIDs(diffs), func(chunk []int64) (querysql.Stmt, error) {
		return b.DeleteShadowAt(chunk, at)
	})
	if err != nil {
		return 0, err
	}

	written := 0
	changed := changedRecordIDs(diffs)
	for chunk := range slices.Chunk(changed, v.batchSize) {
		const op = "copy live rows"
		stmt, err := b.CopyLiveToShadow(chunk, at, user, !futureOrPast)
		if err != nil {
			return written, v.storeErr(op, err)
		}
		n, err := v.execCount(ctx, q, op, stmt)
		if err != nil {
			return written, err
		}
		if n != int64(len(chunk)) {
			return written, v.invariant(op, "copied %d rows, want %d", n, len(chunk))
		}
		written += len(chunk)
	}

	for _, d := range diffs {
		if d.Kind != DiffDel {
			continue
		}
		res, err := v.insertShadowRow(ctx, q, v.shadowValues(d.Old, at, user, false, at))
		if err != nil {
			return written, err
		}
		switch r := res.(type) {
		case Inserted:
			written++
		case InsertFailed:
			return written, v.invariant("write removed record", "record %d: %s", d.ID, r.Reason)
		}
	}

	v.metrics.RowsWritten(v.table.Name, written)
	return written, nil
}
