package temporal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/logger"
	"github.com/roach88/nodeversion/internal/metrics"
	"github.com/roach88/nodeversion/internal/querysql"
	"github.com/roach88/nodeversion/internal/schema"
)

// DefaultBatchSize bounds the keys per statement in batched lookups.
const DefaultBatchSize = 2000

// Join is re-exported for callers configuring a Versioner.
type Join = querysql.Join

// Versioner runs temporal operations for one table and record set.
//
// Configure it with SetTable, SetWherePart, AddJoin and SetAutoIncrement,
// then call operations with the caller's transaction. A Versioner is not safe
// for concurrent configuration changes.
type Versioner struct {
	registry      *schema.Registry
	table         *schema.Table
	where         string
	joins         []Join
	autoIncrement bool

	batchSize int
	clock     Clock
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// Option configures a Versioner.
type Option func(*Versioner)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(v *Versioner) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// WithClock sets the source of "now" for the latest flag.
func WithClock(c Clock) Option {
	return func(v *Versioner) {
		if c != nil {
			v.clock = c
		}
	}
}

// WithLogger sets the operation logger.
func WithLogger(l *logger.Logger) Option {
	return func(v *Versioner) {
		if l != nil {
			v.log = l.Component("temporal")
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Versioner) {
		v.metrics = m
	}
}

// New creates a Versioner resolving tables from reg.
func New(reg *schema.Registry, opts ...Option) *Versioner {
	v := &Versioner{
		registry:  reg,
		batchSize: DefaultBatchSize,
		clock:     SystemClock{},
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetTable selects the versioned table. The auto-increment setting is reset
// to the table's declared default.
func (v *Versioner) SetTable(name string) error {
	t, err := v.registry.Lookup(name)
	if err != nil {
		return fmt.Errorf("set table: %w", err)
	}
	v.table = t
	v.autoIncrement = t.AutoIncrement
	return nil
}

// SetWherePart sets the predicate fragment selecting the record set. It
// references the versioned table by name and uses `?` placeholders bound to
// the params of each operation. An empty fragment selects every row.
func (v *Versioner) SetWherePart(fragment string) {
	v.where = fragment
}

// AddJoin adds a join used by the predicate.
func (v *Versioner) AddJoin(j Join) {
	v.joins = append(v.joins, j)
}

// SetAutoIncrement declares whether the shadow table has the auto_id
// surrogate key. When set, bulk updates address shadow rows by auto_id.
func (v *Versioner) SetAutoIncrement(on bool) {
	v.autoIncrement = on
}

// Table returns the configured table, or nil.
func (v *Versioner) Table() *schema.Table {
	return v.table
}

func (v *Versioner) builder() querysql.Builder {
	return querysql.Builder{Table: v.table, Where: v.where, Joins: v.joins}
}

func (v *Versioner) ready() error {
	if v.table == nil {
		return ErrNoTable
	}
	return nil
}

// operation tracks one public call for logging and metrics.
type operation struct {
	v     *Versioner
	name  string
	start time.Time
	log   *logger.Logger
}

func (v *Versioner) begin(name string) *operation {
	return &operation{
		v:     v,
		name:  name,
		start: time.Now(),
		log:   v.log.With("op_id", uuid.Must(uuid.NewV7()).String()),
	}
}

func (o *operation) end(rows int, err error) {
	table := ""
	if o.v.table != nil {
		table = o.v.table.Name
	}
	d := time.Since(o.start)
	o.v.metrics.ObserveOperation(table, o.name, d, err)
	o.log.LogOperation(o.name, table, d, rows, err)
}

func (v *Versioner) exec(ctx context.Context, q sqlx.ExtContext, op string, stmt querysql.Stmt) (sql.Result, error) {
	res, err := q.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, v.storeErr(op, err)
	}
	return res, nil
}

// execCount runs a statement and returns its affected row count.
func (v *Versioner) execCount(ctx context.Context, q sqlx.ExtContext, op string, stmt querysql.Stmt) (int64, error) {
	res, err := v.exec(ctx, q, op, stmt)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, v.storeErr(op, err)
	}
	return n, nil
}

// each runs a query and calls fn with the raw column values of every row.
func (v *Versioner) each(ctx context.Context, q sqlx.ExtContext, op string, stmt querysql.Stmt, fn func(vals []any) error) error {
	rows, err := q.QueryxContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return v.storeErr(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return v.storeErr(op, err)
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return v.storeErr(op, err)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	case []byte:
		var n int64
		_, err := fmt.Sscan(string(x), &n)
		return n, err == nil
	case string:
		var n int64
		_, err := fmt.Sscan(x, &n)
		return n, err == nil
	}
	return 0, false
}
