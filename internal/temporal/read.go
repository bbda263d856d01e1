package temporal

import (
	"context"
	"iter"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/querysql"
	"github.com/roach88/nodeversion/internal/schema"
)

// GetVersionData returns the record set as it was at timestamp at, ordered by
// id. at < 0 returns the live rows. Unversioned columns always carry their
// current live value, or nil when the live row no longer exists.
func (v *Versioner) GetVersionData(ctx context.Context, q sqlx.ExtContext, params []any, at int64) ([]Row, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	op := v.begin("get_version_data")
	rows, err := v.read(ctx, q, params, at)
	op.end(len(rows), err)
	return rows, err
}

// Rows returns the projection at timestamp at as a sequence. Each range over
// the sequence runs the read again, so it can be consumed more than once.
func (v *Versioner) Rows(ctx context.Context, q sqlx.ExtContext, params []any, at int64) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if err := v.ready(); err != nil {
			yield(Row{}, err)
			return
		}
		rows, err := v.read(ctx, q, params, at)
		if err != nil {
			yield(Row{}, err)
			return
		}
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (v *Versioner) read(ctx context.Context, q sqlx.ExtContext, params []any, at int64) ([]Row, error) {
	if at < 0 {
		return v.readLive(ctx, q, params)
	}
	return v.readAt(ctx, q, params, at)
}

// readLive reads every live column of the record set.
func (v *Versioner) readLive(ctx context.Context, q sqlx.ExtContext, params []any) ([]Row, error) {
	cols := v.table.Columns
	out := []Row{}
	err := v.each(ctx, q, "read live rows", v.builder().LiveSelect(params), func(vals []any) error {
		out = append(out, v.makeRow(cols, vals))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// floorRow is the shadow row in effect for one id at some timestamp.
type floorRow struct {
	key     querysql.Key
	removed int64
	autoID  int64
	row     Row
}

// existsAt reports whether the record is present at at.
func (f floorRow) existsAt(at int64) bool {
	return f.removed == 0 || f.removed > at
}

// floors finds the floor shadow row of every id at timestamp at, including
// floors that mark a removal. Phase one selects (id, timestamp) pairs in one
// grouped query; phase two fetches their values in batches.
func (v *Versioner) floors(ctx context.Context, q sqlx.ExtContext, params []any, at int64) ([]floorRow, error) {
	b := v.builder()

	var keys []querysql.Key
	err := v.each(ctx, q, "read floor timestamps", b.FloorTimestamps(params, at), func(vals []any) error {
		id, ok := toInt64(vals[0])
		if !ok {
			return v.invariant("read floor timestamps", "non-integer id %v", vals[0])
		}
		ts, ok := toInt64(vals[1])
		if !ok {
			return v.invariant("read floor timestamps", "non-integer timestamp %v", vals[1])
		}
		keys = append(keys, querysql.Key{ID: id, Timestamp: ts})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	versioned := v.table.VersionedColumns()
	byID := make(map[int64]floorRow, len(keys))
	for chunk := range slices.Chunk(keys, v.batchSize) {
		stmt := b.ShadowValues(chunk, v.autoIncrement)
		err := v.each(ctx, q, "read shadow values", stmt, func(vals []any) error {
			f := floorRow{row: v.makeRow(versioned, vals[:len(versioned)])}
			rest := vals[len(versioned):]
			f.key = querysql.Key{ID: f.row.ID}
			f.key.Timestamp, _ = toInt64(rest[0])
			f.removed, _ = toInt64(rest[1])
			if v.autoIncrement {
				f.autoID, _ = toInt64(rest[2])
			}
			byID[f.row.ID] = f
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	out := make([]floorRow, 0, len(keys))
	for _, k := range keys {
		f, ok := byID[k.ID]
		if !ok {
			return nil, v.invariant("read shadow values", "shadow row (%d, %d) vanished", k.ID, k.Timestamp)
		}
		out = append(out, f)
	}
	return out, nil
}

// readAt reconstructs the record set at timestamp at.
func (v *Versioner) readAt(ctx context.Context, q sqlx.ExtContext, params []any, at int64) ([]Row, error) {
	v.metrics.PointInTimeRead(v.table.Name)

	floors, err := v.floors(ctx, q, params, at)
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for _, f := range floors {
		if f.existsAt(at) {
			out = append(out, f.row)
		}
	}

	if err := v.mergeUnversioned(ctx, q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeUnversioned copies current live values of unversioned columns into rows.
func (v *Versioner) mergeUnversioned(ctx context.Context, q sqlx.ExtContext, rows []Row) error {
	cols := v.table.UnversionedColumns()
	if len(cols) == 0 || len(rows) == 0 {
		return nil
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		for _, c := range cols {
			r.Values[c.Name] = nil
		}
	}

	live := make(map[int64][]any, len(rows))
	withID := append([]schema.Column{{Name: schema.IDColumn, Type: schema.TypeInteger}}, cols...)
	for chunk := range slices.Chunk(ids, v.batchSize) {
		stmt, err := v.builder().LiveValues(chunk, v.table.UnversionedNames())
		if err != nil {
			return v.storeErr("read unversioned values", err)
		}
		err = v.each(ctx, q, "read unversioned values", stmt, func(vals []any) error {
			r := v.makeRow(withID, vals)
			values := make([]any, len(cols))
			for i, c := range cols {
				values[i] = r.Values[c.Name]
			}
			live[r.ID] = values
			return nil
		})
		if err != nil {
			return err
		}
	}

	for _, r := range rows {
		values, ok := live[r.ID]
		if !ok {
			continue
		}
		for i, c := range cols {
			r.Values[c.Name] = values[i]
		}
	}
	return nil
}

// makeRow builds a Row from values scanned in column order.
func (v *Versioner) makeRow(cols []schema.Column, vals []any) Row {
	r := Row{Values: make(map[string]any, len(v.table.Columns))}
	for i, c := range cols {
		val := c.Normalize(vals[i])
		r.Values[c.Name] = val
		if c.Name == schema.IDColumn {
			r.ID, _ = toInt64(val)
		}
	}
	return r
}
