package temporal

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/querysql"
)

// InsertResult is the outcome of a single-row shadow insert: Inserted or
// InsertFailed.
type InsertResult interface {
	insertResult()
}

// Inserted carries the key of the new shadow row: auto_id when auto-increment
// is enabled, otherwise the record id.
type Inserted struct {
	ID int64
}

// InsertFailed explains why no single row was produced.
type InsertFailed struct {
	Reason string
}

func (Inserted) insertResult()     {}
func (InsertFailed) insertResult() {}

// insertShadowRow inserts one explicit shadow row. Statement errors are
// returned as errors; a statement that succeeds without producing exactly one
// key is an InsertFailed.
func (v *Versioner) insertShadowRow(ctx context.Context, q sqlx.ExtContext, values []any) (InsertResult, error) {
	const op = "insert shadow row"

	res, err := v.exec(ctx, q, op, v.builder().InsertShadowRows([][]any{values}))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, v.storeErr(op, err)
	}
	if n != 1 {
		return InsertFailed{Reason: fmt.Sprintf("insert affected %d rows, want 1", n)}, nil
	}
	if !v.autoIncrement {
		id, _ := toInt64(values[0])
		return Inserted{ID: id}, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return InsertFailed{Reason: fmt.Sprintf("no generated key: %v", err)}, nil
	}
	return Inserted{ID: id}, nil
}

// insertShadowBatch flushes accumulated shadow rows as multi-row inserts,
// splitting only where the parameter ceiling requires it.
func (v *Versioner) insertShadowBatch(ctx context.Context, q sqlx.ExtContext, rows [][]any) error {
	const op = "insert shadow rows"

	b := v.builder()
	per := querysql.RowsPerStatement(b.ShadowRowWidth(), 0)
	for chunk := range slices.Chunk(rows, per) {
		n, err := v.execCount(ctx, q, op, b.InsertShadowRows(chunk))
		if err != nil {
			return err
		}
		if n != int64(len(chunk)) {
			return v.invariant(op, "inserted %d rows, want %d", n, len(chunk))
		}
	}
	v.metrics.RowsWritten(v.table.Name, len(rows))
	return nil
}

// shadowValues lays out a projection as an InsertShadowRows row.
func (v *Versioner) shadowValues(r *Row, at, user int64, latest bool, removed int64) []any {
	cols := v.table.VersionedNames()
	out := make([]any, 0, len(cols)+4)
	for _, c := range cols {
		out = append(out, r.Values[c])
	}
	l := 0
	if latest {
		l = 1
	}
	return append(out, at, user, l, removed)
}

// liveValues lays out a projection as an InsertLiveRows row.
func (v *Versioner) liveValues(r Row) []any {
	cols := v.table.ColumnNames()
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = r.Values[c]
	}
	return out
}

// byIDs runs one IN-list statement per batch of ids and sums affected rows.
func (v *Versioner) byIDs(ctx context.Context, q sqlx.ExtContext, op string, ids []int64, build func([]int64) (querysql.Stmt, error)) (int64, error) {
	var total int64
	for chunk := range slices.Chunk(ids, v.batchSize) {
		stmt, err := build(chunk)
		if err != nil {
			return total, v.storeErr(op, err)
		}
		n, err := v.execCount(ctx, q, op, stmt)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
