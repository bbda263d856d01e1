package temporal

// Current selects the live table instead of a shadow snapshot.
const Current int64 = -1

// Row is one record projection. Values holds every column read, keyed by
// column name, including "id".
type Row struct {
	ID     int64          `json:"id"`
	Values map[string]any `json:"values"`
}

// Get returns the value of a column, or nil.
func (r Row) Get(col string) any {
	return r.Values[col]
}

// DiffKind classifies a Diff.
type DiffKind int

const (
	DiffAdd DiffKind = iota + 1
	DiffMod
	DiffDel
)

// String returns ADD, MOD or DEL.
func (k DiffKind) String() string {
	switch k {
	case DiffAdd:
		return "ADD"
	case DiffMod:
		return "MOD"
	case DiffDel:
		return "DEL"
	}
	return "UNKNOWN"
}

// MarshalText renders the kind name; used by JSON output.
func (k DiffKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diff is the difference of one record between two projections.
// Old is nil for ADD, New is nil for DEL. Columns is set for MOD only.
type Diff struct {
	ID      int64    `json:"id"`
	Kind    DiffKind `json:"kind"`
	Columns []string `json:"columns,omitempty"`
	Old     *Row     `json:"old,omitempty"`
	New     *Row     `json:"new,omitempty"`
}

// Version summarizes the history entries written at one timestamp.
type Version struct {
	Timestamp int64 `json:"timestamp"`
	User      int64 `json:"user"`
	Changes   int   `json:"changes"`
}

// PurgeResult reports what PurgeVersions changed.
type PurgeResult struct {
	Rewritten int64 `json:"rewritten"`
	Deleted   int64 `json:"deleted"`
}
