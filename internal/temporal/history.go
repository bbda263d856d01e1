package temporal

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// GetVersions lists the timestamps at which the record set has history, in
// ascending order. Changes counts the records written at each timestamp.
func (v *Versioner) GetVersions(ctx context.Context, q sqlx.ExtContext, params []any) ([]Version, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	op := v.begin("get_versions")

	out := []Version{}
	err := v.each(ctx, q, "read versions", v.builder().Versions(params), func(vals []any) error {
		var ver Version
		ver.Timestamp, _ = toInt64(vals[0])
		ver.User, _ = toInt64(vals[1])
		changes, _ := toInt64(vals[2])
		ver.Changes = int(changes)
		out = append(out, ver)
		return nil
	})
	op.end(len(out), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInitialVersions seeds one latest shadow row at timestamp at for every
// live row of the table that has no history yet. The configured record set is
// ignored; extra, when not empty, narrows the live rows and is bound to args.
// Returns the number of seeded rows.
func (v *Versioner) CreateInitialVersions(ctx context.Context, q sqlx.ExtContext, at, user int64, extra string, args ...any) (int64, error) {
	if err := v.ready(); err != nil {
		return 0, err
	}
	op := v.begin("create_initial_versions")
	n, err := v.execCount(ctx, q, "seed initial versions", v.builder().SeedInitial(at, user, extra, args))
	op.end(int(n), err)
	if err != nil {
		return 0, err
	}
	v.metrics.RowsWritten(v.table.Name, int(n))
	if n > 0 {
		v.metrics.VersionCreated(v.table.Name, "initial")
	}
	return n, nil
}
