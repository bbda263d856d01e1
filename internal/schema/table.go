package schema

import (
	"fmt"
	"regexp"
)

// Control columns of every shadow table.
const (
	IDColumn        = "id"
	TimestampColumn = "nodeversiontimestamp"
	UserColumn      = "nodeversion_user"
	LatestColumn    = "nodeversionlatest"
	RemovedColumn   = "nodeversionremoved"
	AutoIDColumn    = "auto_id"
)

// DefaultShadowSuffix is appended to a table name to form its shadow table name.
const DefaultShadowSuffix = "_nodeversion"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ColumnType is the storage class of a column.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeReal    ColumnType = "real"
	TypeText    ColumnType = "text"
	TypeBlob    ColumnType = "blob"
	TypeBoolean ColumnType = "boolean"
)

// SQLType returns the SQLite type name used in generated DDL.
func (t ColumnType) SQLType() string {
	switch t {
	case TypeInteger, TypeBoolean:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (t ColumnType) valid() bool {
	switch t {
	case TypeInteger, TypeReal, TypeText, TypeBlob, TypeBoolean:
		return true
	}
	return false
}

// Column describes one column of a live table.
type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`

	// Unversioned columns exist only in the live table. Point-in-time reads
	// borrow their current value.
	Unversioned bool `yaml:"unversioned,omitempty"`

	NotNull bool `yaml:"not_null,omitempty"`
}

// Versioned reports whether the column is mirrored in the shadow table.
func (c Column) Versioned() bool {
	return !c.Unversioned
}

// Table is the registered metadata of one versioned table.
// Tables returned by a Registry must be treated as read-only.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`

	// AutoIncrement declares that the shadow table has the auto_id surrogate key.
	AutoIncrement bool `yaml:"auto_increment,omitempty"`

	shadowSuffix string
	versioned    []Column
	unversioned  []Column
	index        map[string]int
}

// ShadowName returns the name of the table's shadow table.
func (t *Table) ShadowName() string {
	suffix := t.shadowSuffix
	if suffix == "" {
		suffix = DefaultShadowSuffix
	}
	return t.Name + suffix
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// ColumnNames returns all live column names in declaration order.
func (t *Table) ColumnNames() []string {
	return names(t.Columns)
}

// VersionedColumns returns the columns mirrored in the shadow table, id first.
func (t *Table) VersionedColumns() []Column {
	return t.versioned
}

// VersionedNames returns the names of VersionedColumns.
func (t *Table) VersionedNames() []string {
	return names(t.versioned)
}

// UnversionedColumns returns the live-only columns in declaration order.
func (t *Table) UnversionedColumns() []Column {
	return t.unversioned
}

// UnversionedNames returns the names of UnversionedColumns.
func (t *Table) UnversionedNames() []string {
	return names(t.unversioned)
}

// Validate checks the table definition and builds its lookup indexes.
func (t *Table) Validate() error {
	if !identPattern.MatchString(t.Name) {
		return fmt.Errorf("table %q: invalid name", t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q: no columns", t.Name)
	}

	t.index = make(map[string]int, len(t.Columns))
	t.versioned = t.versioned[:0]
	t.unversioned = t.unversioned[:0]

	for i, col := range t.Columns {
		if !identPattern.MatchString(col.Name) {
			return fmt.Errorf("table %q: invalid column name %q", t.Name, col.Name)
		}
		if isControlColumn(col.Name) {
			return fmt.Errorf("table %q: column %q is reserved for the shadow table", t.Name, col.Name)
		}
		if col.Type == "" {
			t.Columns[i].Type = TypeText
			col.Type = TypeText
		}
		if !col.Type.valid() {
			return fmt.Errorf("table %q: column %q has unknown type %q", t.Name, col.Name, col.Type)
		}
		if _, dup := t.index[col.Name]; dup {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, col.Name)
		}
		t.index[col.Name] = i
	}

	id, ok := t.Column(IDColumn)
	if !ok {
		return fmt.Errorf("table %q: missing %q column", t.Name, IDColumn)
	}
	if id.Type != TypeInteger {
		return fmt.Errorf("table %q: %q column must be integer", t.Name, IDColumn)
	}
	if id.Unversioned {
		return fmt.Errorf("table %q: %q column must be versioned", t.Name, IDColumn)
	}

	t.versioned = append(t.versioned, id)
	for _, col := range t.Columns {
		switch {
		case col.Name == IDColumn:
		case col.Unversioned:
			t.unversioned = append(t.unversioned, col)
		default:
			t.versioned = append(t.versioned, col)
		}
	}
	return nil
}

func (t *Table) clone() *Table {
	c := &Table{
		Name:          t.Name,
		Columns:       append([]Column(nil), t.Columns...),
		AutoIncrement: t.AutoIncrement,
		shadowSuffix:  t.shadowSuffix,
	}
	return c
}

func isControlColumn(name string) bool {
	switch name {
	case TimestampColumn, UserColumn, LatestColumn, RemovedColumn, AutoIDColumn:
		return true
	}
	return false
}

func names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
