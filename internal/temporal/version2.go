package temporal

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/querysql"
)

// CreateVersion2 appends a version at timestamp at using the diff between the
// history in effect at at and the live rows. It does not support inserting
// versions before existing ones. Shadow rows already at exactly at for the
// changed ids are replaced.
//
// Written rows are flagged latest. When at lies after the clock's "now" the
// latest flag is recomputed so it stays on the rows in effect now.
//
// Returns false without writing anything when live state matches history.
func (v *Versioner) CreateVersion2(ctx context.Context, q sqlx.ExtContext, params []any, at, user int64) (bool, error) {
	if err := v.ready(); err != nil {
		return false, err
	}
	op := v.begin("create_version2")
	n, err := v.createVersion2(ctx, q, params, at, user)
	if err == nil && n > 0 && at > v.clock.Now() {
		err = v.setLatestFlag(ctx, q, params)
	}
	op.end(n, err)
	if err != nil || n == 0 {
		return false, err
	}
	v.metrics.VersionCreated(v.table.Name, "diff")
	return true, nil
}

func (v *Versioner) createVersion2(ctx context.Context, q sqlx.ExtContext, params []any, at, user int64) (int, error) {
	diffs, err := v.diff(ctx, q, params, at, Current)
	if err != nil {
		return 0, err
	}
	if len(diffs) == 0 {
		return 0, nil
	}

	b := v.builder()
	ids := diffIDs(diffs)

	conflicts, err := v.byIDs(ctx, q, "delete conflicting version", ids, func(chunk []int64) (querysql.Stmt, error) {
		return b.DeleteShadowAt(chunk, at)
	})
	if err != nil {
		return 0, err
	}
	if conflicts > 0 {
		v.log.Debug().
			Str("table", v.table.Name).
			Int64("timestamp", at).
			Int64("rows", conflicts).
			Msg("replaced conflicting version")
	}

	if _, err := v.byIDs(ctx, q, "clear latest flag", ids, b.ClearLatest); err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(diffs))
	for _, d := range diffs {
		switch d.Kind {
		case DiffAdd, DiffMod:
			rows = append(rows, v.shadowValues(d.New, at, user, true, 0))
		case DiffDel:
			rows = append(rows, v.shadowValues(d.Old, at, user, false, at))
		}
	}
	if err := v.insertShadowBatch(ctx, q, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
