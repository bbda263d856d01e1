package temporal

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/querysql"
)

// SetLatestFlag marks, for every record of the record set, the shadow row in
// effect at the clock's "now" as latest and clears the flag on all other rows
// of the record set. Records absent at "now" end up without a latest row.
// Rows whose flag is already right are not written.
func (v *Versioner) SetLatestFlag(ctx context.Context, q sqlx.ExtContext, params []any) error {
	if err := v.ready(); err != nil {
		return err
	}
	op := v.begin("set_latest_flag")
	err := v.setLatestFlag(ctx, q, params)
	op.end(0, err)
	return err
}

func (v *Versioner) setLatestFlag(ctx context.Context, q sqlx.ExtContext, params []any) error {
	b := v.builder()
	flagged, err := v.shadowKeys(ctx, q, "read latest flags", b.LatestKeys(params, v.autoIncrement))
	if err != nil {
		return err
	}

	now := v.clock.Now()
	floors, err := v.floors(ctx, q, params, now)
	if err != nil {
		return err
	}
	isFlagged := make(map[querysql.Key]bool, len(flagged))
	for _, k := range flagged {
		isFlagged[k.key] = true
	}
	want := make(map[querysql.Key]bool, len(floors))
	var mark []shadowKey
	for _, f := range floors {
		if !f.existsAt(now) {
			continue
		}
		want[f.key] = true
		if !isFlagged[f.key] {
			mark = append(mark, shadowKey{key: f.key, autoID: f.autoID})
		}
	}

	var stale []shadowKey
	for _, k := range flagged {
		if !want[k.key] {
			stale = append(stale, k)
		}
	}

	if _, err := v.byKeys(ctx, q, "clear latest flag", stale,
		func(keys []querysql.Key) (querysql.Stmt, error) { return b.ClearLatestKeys(keys), nil },
		b.ClearLatestByAutoID); err != nil {
		return err
	}
	_, err = v.byKeys(ctx, q, "mark latest flag", mark,
		func(keys []querysql.Key) (querysql.Stmt, error) { return b.MarkLatest(keys), nil },
		b.MarkLatestByAutoID)
	return err
}
