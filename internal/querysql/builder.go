package querysql

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/schema"
)

// MaxParams is the bound-parameter ceiling of the bundled SQLite build.
const MaxParams = 32766

// Stmt is a parameterized statement.
type Stmt struct {
	SQL  string
	Args []any
}

// Join declares that the versioned table is reached through a parent:
// JOIN JoinedTable ON Table.Column = JoinedTable.JoinedColumn.
type Join struct {
	Table        string
	Column       string
	JoinedTable  string
	JoinedColumn string
}

func (j Join) clause() string {
	return fmt.Sprintf(" JOIN %s ON %s.%s = %s.%s",
		j.JoinedTable, j.Table, j.Column, j.JoinedTable, j.JoinedColumn)
}

// Key identifies one shadow row.
type Key struct {
	ID        int64
	Timestamp int64
}

// Builder assembles statements for one versioned table and record set.
// Where is a predicate fragment with `?` placeholders; its parameters are
// passed to each method that applies it.
type Builder struct {
	Table *schema.Table
	Where string
	Joins []Join
}

// predicate returns the WHERE body for the record set.
func (b Builder) predicate() string {
	if strings.TrimSpace(b.Where) == "" {
		return "1 = 1"
	}
	return "(" + b.Where + ")"
}

func (b Builder) joins() string {
	var sb strings.Builder
	for _, j := range b.Joins {
		sb.WriteString(j.clause())
	}
	return sb.String()
}

// qualified prefixes each column with the live table name.
func (b Builder) qualified(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = b.Table.Name + "." + c
	}
	return strings.Join(parts, ", ")
}

func (b Builder) shadowFrom() string {
	return fmt.Sprintf("%s AS %s%s", b.Table.ShadowName(), b.Table.Name, b.joins())
}

func (b Builder) shadowInsertColumns() []string {
	cols := append([]string(nil), b.Table.VersionedNames()...)
	return append(cols, schema.TimestampColumn, schema.UserColumn, schema.LatestColumn, schema.RemovedColumn)
}

func (b Builder) idCol() string {
	return b.Table.Name + "." + schema.IDColumn
}

// LiveSelect reads every live column of the record set, ordered by id.
func (b Builder) LiveSelect(params []any) Stmt {
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s%s WHERE %s ORDER BY %s ASC",
		b.qualified(b.Table.ColumnNames()), b.Table.Name, b.joins(), b.predicate(), b.idCol())
	return Stmt{SQL: sql, Args: copyArgs(params)}
}

// FloorTimestamps selects, per id of the record set, the greatest shadow
// timestamp at or before at.
func (b Builder) FloorTimestamps(params []any, at int64) Stmt {
	sql := fmt.Sprintf("SELECT %s, MAX(%s.%s) FROM %s WHERE %s AND %s.%s <= ? GROUP BY %s ORDER BY %s ASC",
		b.idCol(), b.Table.Name, schema.TimestampColumn, b.shadowFrom(), b.predicate(),
		b.Table.Name, schema.TimestampColumn, b.idCol(), b.idCol())
	return Stmt{SQL: sql, Args: append(copyArgs(params), at)}
}

// LatestKeys selects the (id, timestamp) keys, plus auto_id when withAutoID is
// set, of the record set's shadow rows flagged latest.
func (b Builder) LatestKeys(params []any, withAutoID bool) Stmt {
	cond := fmt.Sprintf("%s.%s <> 0", b.Table.Name, schema.LatestColumn)
	return b.shadowKeys(params, withAutoID, cond, nil)
}

// KeysBefore selects the keys of the record set's shadow rows older than
// cutoff.
func (b Builder) KeysBefore(params []any, cutoff int64, withAutoID bool) Stmt {
	cond := fmt.Sprintf("%s.%s < ?", b.Table.Name, schema.TimestampColumn)
	return b.shadowKeys(params, withAutoID, cond, []any{cutoff})
}

func (b Builder) shadowKeys(params []any, withAutoID bool, cond string, condArgs []any) Stmt {
	cols := []string{schema.IDColumn, schema.TimestampColumn}
	if withAutoID {
		cols = append(cols, schema.AutoIDColumn)
	}
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s AND %s ORDER BY %s ASC, %s.%s ASC",
		b.qualified(cols), b.shadowFrom(), b.predicate(), cond, b.idCol(), b.Table.Name, schema.TimestampColumn)
	return Stmt{SQL: sql, Args: append(copyArgs(params), condArgs...)}
}

// NextTimestamp selects the smallest shadow timestamp strictly after at.
// The result is NULL when no later version exists.
func (b Builder) NextTimestamp(params []any, at int64) Stmt {
	sql := fmt.Sprintf("SELECT MIN(%s.%s) FROM %s WHERE %s AND %s.%s > ?",
		b.Table.Name, schema.TimestampColumn, b.shadowFrom(), b.predicate(),
		b.Table.Name, schema.TimestampColumn)
	return Stmt{SQL: sql, Args: append(copyArgs(params), at)}
}

// Versions groups the record set's history by timestamp, ascending.
func (b Builder) Versions(params []any) Stmt {
	ts := b.Table.Name + "." + schema.TimestampColumn
	sql := fmt.Sprintf("SELECT %s, MAX(%s.%s), COUNT(DISTINCT %s) FROM %s WHERE %s GROUP BY %s ORDER BY %s ASC",
		ts, b.Table.Name, schema.UserColumn, b.idCol(), b.shadowFrom(), b.predicate(), ts, ts)
	return Stmt{SQL: sql, Args: copyArgs(params)}
}

// ShadowValues fetches the versioned columns of the given shadow rows followed
// by nodeversiontimestamp, nodeversionremoved and, when withAutoID is set,
// auto_id.
func (b Builder) ShadowValues(keys []Key, withAutoID bool) Stmt {
	cols := append([]string(nil), b.Table.VersionedNames()...)
	cols = append(cols, schema.TimestampColumn, schema.RemovedColumn)
	if withAutoID {
		cols = append(cols, schema.AutoIDColumn)
	}
	where, args := keyMatch(keys)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s ASC",
		strings.Join(cols, ", "), b.Table.ShadowName(), where, schema.IDColumn)
	return Stmt{SQL: sql, Args: args}
}

// LiveValues fetches id plus the named columns of the given live rows.
func (b Builder) LiveValues(ids []int64, cols []string) (Stmt, error) {
	all := append([]string{schema.IDColumn}, cols...)
	return in(fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?) ORDER BY %s ASC",
		strings.Join(all, ", "), b.Table.Name, schema.IDColumn, schema.IDColumn), ids)
}

// CopyLiveToShadow inserts one shadow row per given id, copied from the live
// table with the given control values and nodeversionremoved = 0.
func (b Builder) CopyLiveToShadow(ids []int64, at, user int64, latest bool) (Stmt, error) {
	versioned := b.Table.VersionedNames()
	sql := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s, ?, ?, ?, 0 FROM %s WHERE %s IN (?)",
		b.Table.ShadowName(), strings.Join(b.shadowInsertColumns(), ", "),
		strings.Join(versioned, ", "), b.Table.Name, schema.IDColumn)
	return in(sql, at, user, boolInt(latest), ids)
}

// InsertShadowRows inserts explicit shadow rows. Each row holds the versioned
// values followed by timestamp, user, latest and removed.
func (b Builder) InsertShadowRows(rows [][]any) Stmt {
	return insertRows(b.Table.ShadowName(), b.shadowInsertColumns(), rows)
}

// ShadowRowWidth is the value count of one InsertShadowRows row.
func (b Builder) ShadowRowWidth() int {
	return len(b.Table.VersionedColumns()) + 4
}

// DeleteShadowAt removes the shadow rows of the given ids at exactly at.
func (b Builder) DeleteShadowAt(ids []int64, at int64) (Stmt, error) {
	return in(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s IN (?)",
		b.Table.ShadowName(), schema.TimestampColumn, schema.IDColumn), at, ids)
}

// ClearLatest resets the latest flag on every shadow row of the given ids.
func (b Builder) ClearLatest(ids []int64) (Stmt, error) {
	return in(fmt.Sprintf("UPDATE %s SET %s = 0 WHERE %s <> 0 AND %s IN (?)",
		b.Table.ShadowName(), schema.LatestColumn, schema.LatestColumn, schema.IDColumn), ids)
}

// MarkLatest sets the latest flag on the given shadow rows.
func (b Builder) MarkLatest(keys []Key) Stmt {
	where, args := keyMatch(keys)
	return Stmt{
		SQL:  fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s", b.Table.ShadowName(), schema.LatestColumn, where),
		Args: args,
	}
}

// MarkLatestByAutoID sets the latest flag on the shadow rows with the given
// surrogate keys.
func (b Builder) MarkLatestByAutoID(autoIDs []int64) (Stmt, error) {
	return in(fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s IN (?)",
		b.Table.ShadowName(), schema.LatestColumn, schema.AutoIDColumn), autoIDs)
}

// ClearLatestKeys resets the latest flag on the given shadow rows.
func (b Builder) ClearLatestKeys(keys []Key) Stmt {
	where, args := keyMatch(keys)
	return Stmt{
		SQL:  fmt.Sprintf("UPDATE %s SET %s = 0 WHERE %s", b.Table.ShadowName(), schema.LatestColumn, where),
		Args: args,
	}
}

// ClearLatestByAutoID resets the latest flag on the shadow rows with the
// given surrogate keys.
func (b Builder) ClearLatestByAutoID(autoIDs []int64) (Stmt, error) {
	return in(fmt.Sprintf("UPDATE %s SET %s = 0 WHERE %s IN (?)",
		b.Table.ShadowName(), schema.LatestColumn, schema.AutoIDColumn), autoIDs)
}

// DeleteShadowKeys removes the given shadow rows.
func (b Builder) DeleteShadowKeys(keys []Key) Stmt {
	where, args := keyMatch(keys)
	return Stmt{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s", b.Table.ShadowName(), where),
		Args: args,
	}
}

// DeleteShadowByAutoID removes the shadow rows with the given surrogate keys.
func (b Builder) DeleteShadowByAutoID(autoIDs []int64) (Stmt, error) {
	return in(fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)",
		b.Table.ShadowName(), schema.AutoIDColumn), autoIDs)
}

// RewriteTimestamp moves the given shadow rows to timestamp to.
func (b Builder) RewriteTimestamp(keys []Key, to int64) Stmt {
	where, args := keyMatch(keys)
	return Stmt{
		SQL:  fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s", b.Table.ShadowName(), schema.TimestampColumn, where),
		Args: append([]any{to}, args...),
	}
}

// RewriteTimestampByAutoID moves the shadow rows with the given surrogate keys
// to timestamp to.
func (b Builder) RewriteTimestampByAutoID(autoIDs []int64, to int64) (Stmt, error) {
	return in(fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s IN (?)",
		b.Table.ShadowName(), schema.TimestampColumn, schema.AutoIDColumn), to, autoIDs)
}

// DeleteLive removes every live row of the record set. Joins are resolved in
// a subquery so only the versioned table is touched.
func (b Builder) DeleteLive(params []any) Stmt {
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT %s FROM %s%s WHERE %s)",
		b.Table.Name, schema.IDColumn, b.idCol(), b.Table.Name, b.joins(), b.predicate())
	return Stmt{SQL: sql, Args: copyArgs(params)}
}

// InsertLiveRows inserts rows holding every live column in declaration order.
func (b Builder) InsertLiveRows(rows [][]any) Stmt {
	return insertRows(b.Table.Name, b.Table.ColumnNames(), rows)
}

// SeedInitial copies every live row that has no shadow row into the shadow
// table as the latest version. extra narrows the live rows and may reference
// the live table by name.
func (b Builder) SeedInitial(at, user int64, extra string, extraArgs []any) Stmt {
	cond := fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s s WHERE s.%s = %s)",
		b.Table.ShadowName(), schema.IDColumn, b.idCol())
	if strings.TrimSpace(extra) != "" {
		cond += " AND (" + extra + ")"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s, ?, ?, 1, 0 FROM %s WHERE %s",
		b.Table.ShadowName(), strings.Join(b.shadowInsertColumns(), ", "),
		b.qualified(b.Table.VersionedNames()), b.Table.Name, cond)
	return Stmt{SQL: sql, Args: append([]any{at, user}, extraArgs...)}
}

// keyMatch renders a row-value membership test for (id, timestamp) pairs.
func keyMatch(keys []Key) (string, []any) {
	if len(keys) == 0 {
		return "0 = 1", nil
	}
	tuples := make([]string, len(keys))
	args := make([]any, 0, 2*len(keys))
	for i, k := range keys {
		tuples[i] = "(?, ?)"
		args = append(args, k.ID, k.Timestamp)
	}
	return fmt.Sprintf("(%s, %s) IN (VALUES %s)",
		schema.IDColumn, schema.TimestampColumn, strings.Join(tuples, ", ")), args
}

func insertRows(table string, cols []string, rows [][]any) Stmt {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	tuples := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(cols))
	for i, row := range rows {
		tuples[i] = placeholder
		args = append(args, row...)
	}
	return Stmt{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(cols, ", "), strings.Join(tuples, ", ")),
		Args: args,
	}
}

// in expands slice arguments into `IN (?, ?, ...)` lists.
func in(query string, args ...any) (Stmt, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return Stmt{}, fmt.Errorf("expand IN list: %w", err)
	}
	return Stmt{SQL: q, Args: expanded}, nil
}

func copyArgs(params []any) []any {
	return append(make([]any, 0, len(params)+1), params...)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RowsPerStatement returns how many rows of the given width fit under
// MaxParams, capped at limit.
func RowsPerStatement(width, limit int) int {
	if width <= 0 {
		return limit
	}
	n := MaxParams / width
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
