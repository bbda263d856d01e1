package temporal

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// RestoreVersion replaces the live rows of the record set with their state at
// timestamp at. Live rows that did not exist at at are deleted; rows that
// existed are re-inserted with every live column.
func (v *Versioner) RestoreVersion(ctx context.Context, q sqlx.ExtContext, params []any, at int64) error {
	if err := v.ready(); err != nil {
		return err
	}
	op := v.begin("restore_version")
	n, err := v.restore(ctx, q, params, at)
	op.end(n, err)
	return err
}

// RestoreIfDiff restores only when the state at at differs from the live
// rows. Returns whether a restore happened.
func (v *Versioner) RestoreIfDiff(ctx context.Context, q sqlx.ExtContext, params []any, at int64) (bool, error) {
	changed, err := v.HasDiff(ctx, q, params, at)
	if err != nil || !changed {
		return false, err
	}
	if err := v.RestoreVersion(ctx, q, params, at); err != nil {
		return false, err
	}
	return true, nil
}

func (v *Versioner) restore(ctx context.Context, q sqlx.ExtContext, params []any, at int64) (int, error) {
	rows, err := v.read(ctx, q, params, at)
	if err != nil {
		return 0, err
	}
	if err := v.replaceLive(ctx, q, params, rows); err != nil {
		return 0, err
	}
	v.metrics.Restored(v.table.Name)
	return len(rows), nil
}
