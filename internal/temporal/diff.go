package temporal

import (
	"context"
	"fmt"
	"iter"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/schema"
)

// GetDiff compares the record set at from with the record set at to.
// Either timestamp may be Current.
func (v *Versioner) GetDiff(ctx context.Context, q sqlx.ExtContext, params []any, from, to int64) ([]Diff, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	op := v.begin("get_diff")
	diffs, err := v.diff(ctx, q, params, from, to)
	op.end(len(diffs), err)
	return diffs, err
}

// HasDiff reports whether the record set at at differs from the live state.
func (v *Versioner) HasDiff(ctx context.Context, q sqlx.ExtContext, params []any, at int64) (bool, error) {
	diffs, err := v.GetDiff(ctx, q, params, at, Current)
	if err != nil {
		return false, err
	}
	return len(diffs) > 0, nil
}

func (v *Versioner) diff(ctx context.Context, q sqlx.ExtContext, params []any, from, to int64) ([]Diff, error) {
	diffs, err := DiffRows(v.table, v.Rows(ctx, q, params, from), v.Rows(ctx, q, params, to))
	if err != nil {
		return nil, err
	}
	return diffs, nil
}

// DiffRows merges two projections sorted ascending by id: an id only in newer
// is ADD, only in older is DEL, in both with a differing versioned column is
// MOD. Columns of a MOD follow the table's column order.
func DiffRows(table *schema.Table, older, newer iter.Seq2[Row, error]) ([]Diff, error) {
	nextOld, stopOld := iter.Pull2(older)
	defer stopOld()
	nextNew, stopNew := iter.Pull2(newer)
	defer stopNew()

	oldCur := cursor{next: nextOld}
	newCur := cursor{next: nextNew}
	if err := oldCur.advance(); err != nil {
		return nil, err
	}
	if err := newCur.advance(); err != nil {
		return nil, err
	}

	compared := table.VersionedColumns()[1:]
	out := []Diff{}
	for oldCur.ok || newCur.ok {
		switch {
		case !newCur.ok || (oldCur.ok && oldCur.row.ID < newCur.row.ID):
			old := oldCur.row
			out = append(out, Diff{ID: old.ID, Kind: DiffDel, Old: &old})
			if err := oldCur.advance(); err != nil {
				return nil, err
			}

		case !oldCur.ok || newCur.row.ID < oldCur.row.ID:
			row := newCur.row
			out = append(out, Diff{ID: row.ID, Kind: DiffAdd, New: &row})
			if err := newCur.advance(); err != nil {
				return nil, err
			}

		default:
			old, row := oldCur.row, newCur.row
			var changed []string
			for _, c := range compared {
				if !schema.Equal(old.Values[c.Name], row.Values[c.Name]) {
					changed = append(changed, c.Name)
				}
			}
			if len(changed) > 0 {
				out = append(out, Diff{ID: row.ID, Kind: DiffMod, Columns: changed, Old: &old, New: &row})
			}
			if err := oldCur.advance(); err != nil {
				return nil, err
			}
			if err := newCur.advance(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// cursor walks a pulled sequence and checks that ids ascend strictly.
type cursor struct {
	next   func() (Row, error, bool)
	row    Row
	ok     bool
	seen   bool
	lastID int64
}

func (c *cursor) advance() error {
	row, err, ok := c.next()
	if !ok {
		c.ok = false
		return nil
	}
	if err != nil {
		c.ok = false
		return err
	}
	if c.seen && row.ID <= c.lastID {
		return fmt.Errorf("diff input not sorted by id: %d after %d", row.ID, c.lastID)
	}
	c.row, c.ok, c.seen, c.lastID = row, true, true, row.ID
	return nil
}

// changedRecordIDs returns the ids whose live row differs from the version in
// effect (ADD and MOD).
func changedRecordIDs(diffs []Diff) []int64 {
	var ids []int64
	for _, d := range diffs {
		if d.Kind == DiffAdd || d.Kind == DiffMod {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func diffIDs(diffs []Diff) []int64 {
	ids := make([]int64, len(diffs))
	for i, d := range diffs {
		ids[i] = d.ID
	}
	return ids
}
