package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/schema"
)

// ShadowTable is one row of nodeversion_tables.
type ShadowTable struct {
	TableName     string `db:"table_name" json:"table"`
	ShadowTable   string `db:"shadow_table" json:"shadow_table"`
	AutoIncrement bool   `db:"auto_increment" json:"auto_increment"`
	CreatedAt     int64  `db:"created_at" json:"created_at"`
}

// LiveTableDDL renders CREATE TABLE for the live table of t.
func LiveTableDDL(t *schema.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := c.Name + " " + c.Type.SQLType()
		switch {
		case c.Name == schema.IDColumn:
			def += " PRIMARY KEY"
		case c.NotNull:
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", t.Name, strings.Join(cols, ",\n    "))
}

// ShadowTableDDL renders CREATE TABLE and index statements for the shadow
// table of t.
func ShadowTableDDL(t *schema.Table, autoIncrement bool) []string {
	var cols []string
	if autoIncrement {
		cols = append(cols, schema.AutoIDColumn+" INTEGER PRIMARY KEY AUTOINCREMENT")
	}
	for _, c := range t.VersionedColumns() {
		def := c.Name + " " + c.Type.SQLType()
		if c.Name == schema.IDColumn {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	cols = append(cols,
		schema.TimestampColumn+" INTEGER NOT NULL",
		schema.UserColumn+" INTEGER NOT NULL DEFAULT 0",
		schema.LatestColumn+" INTEGER NOT NULL DEFAULT 0",
		schema.RemovedColumn+" INTEGER NOT NULL DEFAULT 0",
		fmt.Sprintf("UNIQUE (%s, %s)", schema.IDColumn, schema.TimestampColumn),
	)

	shadow := t.ShadowName()
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", shadow, strings.Join(cols, ",\n    ")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s(%s)",
			shadow, shadow, schema.TimestampColumn),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_latest ON %s(%s, %s)",
			shadow, shadow, schema.IDColumn, schema.LatestColumn),
	}
}

// CreateLiveTable creates the live table of t if it does not exist.
func (s *Store) CreateLiveTable(ctx context.Context, t *schema.Table) error {
	if _, err := s.db.ExecContext(ctx, LiveTableDDL(t)); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return nil
}

// EnsureShadowTable creates the shadow table of t and its indexes if they do
// not exist, and records it in nodeversion_tables.
func (s *Store) EnsureShadowTable(ctx context.Context, t *schema.Table, autoIncrement bool) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range ShadowTableDDL(t, autoIncrement) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create shadow table %s: %w", t.ShadowName(), err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO nodeversion_tables (table_name, shadow_table, auto_increment)
			VALUES (?, ?, ?)
			ON CONFLICT(table_name) DO NOTHING
		`, t.Name, t.ShadowName(), autoIncrement)
		if err != nil {
			return fmt.Errorf("record shadow table %s: %w", t.ShadowName(), err)
		}
		return nil
	})
}

// ShadowTables lists the recorded shadow tables ordered by table name.
func (s *Store) ShadowTables(ctx context.Context) ([]ShadowTable, error) {
	var out []ShadowTable
	err := s.db.SelectContext(ctx, &out, `
		SELECT table_name, shadow_table, auto_increment, created_at
		FROM nodeversion_tables
		ORDER BY table_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list shadow tables: %w", err)
	}
	return out, nil
}
