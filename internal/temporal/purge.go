package temporal

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/querysql"
)

// PurgeVersions drops history older than cutoff. The version in effect at
// cutoff is moved to exactly cutoff first, so reads at or after cutoff return
// what they returned before.
func (v *Versioner) PurgeVersions(ctx context.Context, q sqlx.ExtContext, params []any, cutoff int64) (PurgeResult, error) {
	if err := v.ready(); err != nil {
		return PurgeResult{}, err
	}
	op := v.begin("purge_versions")
	res, err := v.purge(ctx, q, params, cutoff)
	op.end(int(res.Deleted), err)
	return res, err
}

func (v *Versioner) purge(ctx context.Context, q sqlx.ExtContext, params []any, cutoff int64) (PurgeResult, error) {
	var res PurgeResult

	floors, err := v.floors(ctx, q, params, cutoff)
	if err != nil {
		return res, err
	}
	var moved []shadowKey
	for _, f := range floors {
		if f.key.Timestamp == cutoff || !f.existsAt(cutoff) {
			continue
		}
		moved = append(moved, shadowKey{key: f.key, autoID: f.autoID})
	}

	b := v.builder()
	res.Rewritten, err = v.byKeys(ctx, q, "rewrite floor timestamp", moved,
		func(keys []querysql.Key) (querysql.Stmt, error) { return b.RewriteTimestamp(keys, cutoff), nil },
		func(ids []int64) (querysql.Stmt, error) { return b.RewriteTimestampByAutoID(ids, cutoff) })
	if err != nil {
		return res, err
	}

	old, err := v.shadowKeys(ctx, q, "read old versions", b.KeysBefore(params, cutoff, v.autoIncrement))
	if err != nil {
		return res, err
	}
	res.Deleted, err = v.byKeys(ctx, q, "delete old versions", old,
		func(keys []querysql.Key) (querysql.Stmt, error) { return b.DeleteShadowKeys(keys), nil },
		b.DeleteShadowByAutoID)
	if err != nil {
		return res, err
	}
	v.metrics.Purged(v.table.Name, res.Deleted)
	return res, nil
}

// shadowKey addresses one shadow row; autoID is only set when the table
// carries a surrogate key.
type shadowKey struct {
	key    querysql.Key
	autoID int64
}

func (v *Versioner) shadowKeys(ctx context.Context, q sqlx.ExtContext, op string, stmt querysql.Stmt) ([]shadowKey, error) {
	var out []shadowKey
	err := v.each(ctx, q, op, stmt, func(vals []any) error {
		var k shadowKey
		var ok bool
		if k.key.ID, ok = toInt64(vals[0]); !ok {
			return v.invariant(op, "non-integer id %v", vals[0])
		}
		if k.key.Timestamp, ok = toInt64(vals[1]); !ok {
			return v.invariant(op, "non-integer timestamp %v", vals[1])
		}
		if v.autoIncrement {
			if k.autoID, ok = toInt64(vals[2]); !ok {
				return v.invariant(op, "non-integer auto_id %v", vals[2])
			}
		}
		out = append(out, k)
		return nil
	})
	return out, err
}

// byKeys applies a statement to the given shadow rows in batches, addressing
// them by auto_id when the table has one and by (id, timestamp) otherwise.
func (v *Versioner) byKeys(ctx context.Context, q sqlx.ExtContext, op string, keys []shadowKey,
	byKey func([]querysql.Key) (querysql.Stmt, error), byAutoID func([]int64) (querysql.Stmt, error)) (int64, error) {
	if v.autoIncrement {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			ids[i] = k.autoID
		}
		return v.byIDs(ctx, q, op, ids, byAutoID)
	}
	var total int64
	for start := 0; start < len(keys); start += v.batchSize {
		end := min(start+v.batchSize, len(keys))
		chunk := make([]querysql.Key, 0, end-start)
		for _, k := range keys[start:end] {
			chunk = append(chunk, k.key)
		}
		stmt, err := byKey(chunk)
		if err != nil {
			return total, err
		}
		n, err := v.execCount(ctx, q, op, stmt)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
