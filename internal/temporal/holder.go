package temporal

import (
	"context"
	"errors"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/querysql"
)

// liveHolder keeps the live rows of a record set while the live table
// temporarily holds other contents. release puts the saved rows back and is
// safe to call more than once.
type liveHolder struct {
	v        *Versioner
	q        sqlx.ExtContext
	params   []any
	saved    []Row
	released bool
}

// swapLive saves the live rows of the record set and replaces them with
// replacement. If the replacement fails the saved rows are put back before
// returning.
func (v *Versioner) swapLive(ctx context.Context, q sqlx.ExtContext, params []any, replacement []Row) (*liveHolder, error) {
	saved, err := v.readLive(ctx, q, params)
	if err != nil {
		return nil, err
	}
	h := &liveHolder{v: v, q: q, params: params, saved: saved}
	if err := v.replaceLive(ctx, q, params, replacement); err != nil {
		return nil, errors.Join(err, h.release(ctx))
	}
	return h, nil
}

func (h *liveHolder) release(ctx context.Context) error {
	if h.released {
		return nil
	}
	h.released = true
	return h.v.replaceLive(ctx, h.q, h.params, h.saved)
}

// replaceLive deletes the live rows of the record set and inserts rows.
func (v *Versioner) replaceLive(ctx context.Context, q sqlx.ExtContext, params []any, rows []Row) error {
	const op = "replace live rows"

	b := v.builder()
	if _, err := v.exec(ctx, q, op, b.DeleteLive(params)); err != nil {
		return err
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = v.liveValues(r)
	}
	per := querysql.RowsPerStatement(len(v.table.Columns), v.batchSize)
	for chunk := range slices.Chunk(values, per) {
		if _, err := v.exec(ctx, q, op, b.InsertLiveRows(chunk)); err != nil {
			return err
		}
	}
	return nil
}
