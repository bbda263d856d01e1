package temporal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeversion/internal/schema"
	"github.com/roach88/nodeversion/internal/store"
	"github.com/roach88/nodeversion/internal/testutil"
)

// folder1 selects the pages of folder 1 under the default predicate.
var folder1 = []any{int64(1)}

// fixture is a temp SQLite database with a versioned page table and an
// unversioned folder table for joins.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	st    *store.Store
	db    *sqlx.DB
	reg   *schema.Registry
	clock *testutil.ManualClock
}

func newFixture(t *testing.T, autoIncrement bool) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := schema.NewRegistry()
	reg.MustRegister(schema.Table{
		Name: "folder",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInteger},
			{Name: "node_id", Type: schema.TypeInteger},
		},
	})
	reg.MustRegister(schema.Table{
		Name:          "page",
		AutoIncrement: autoIncrement,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInteger},
			{Name: "title", Type: schema.TypeText},
			{Name: "folder_id", Type: schema.TypeInteger},
			{Name: "views", Type: schema.TypeInteger, Unversioned: true},
		},
	})
	reg.Seal()

	for _, name := range reg.Tables() {
		tbl, err := reg.Lookup(name)
		require.NoError(t, err)
		require.NoError(t, st.CreateLiveTable(ctx, tbl))
	}
	page, err := reg.Lookup("page")
	require.NoError(t, err)
	require.NoError(t, st.EnsureShadowTable(ctx, page, autoIncrement))

	return &fixture{
		t:     t,
		ctx:   ctx,
		st:    st,
		db:    st.DB(),
		reg:   reg,
		clock: testutil.NewManualClock(10_000),
	}
}

// versioner returns a Versioner over the pages of one folder.
func (f *fixture) versioner(opts ...Option) *Versioner {
	f.t.Helper()
	v := New(f.reg, append([]Option{WithClock(f.clock)}, opts...)...)
	require.NoError(f.t, v.SetTable("page"))
	v.SetWherePart("page.folder_id = ?")
	return v
}

func (f *fixture) exec(query string, args ...any) {
	f.t.Helper()
	_, err := f.db.ExecContext(f.ctx, query, args...)
	require.NoError(f.t, err)
}

func (f *fixture) insertPage(id int64, title string, folder int64) {
	f.t.Helper()
	f.exec("INSERT INTO page (id, title, folder_id, views) VALUES (?, ?, ?, 0)", id, title, folder)
}

func (f *fixture) setTitle(id int64, title string) {
	f.t.Helper()
	f.exec("UPDATE page SET title = ? WHERE id = ?", title, id)
}

func (f *fixture) deletePage(id int64) {
	f.t.Helper()
	f.exec("DELETE FROM page WHERE id = ?", id)
}

// titles reads the record set at at as id -> title.
func (f *fixture) titles(v *Versioner, params []any, at int64) map[int64]any {
	f.t.Helper()
	rows, err := v.GetVersionData(f.ctx, f.db, params, at)
	require.NoError(f.t, err)
	out := make(map[int64]any, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Get("title")
	}
	return out
}

type shadowKeyRow struct {
	ID        int64 `db:"id"`
	Timestamp int64 `db:"nodeversiontimestamp"`
}

// latest lists the shadow rows flagged latest.
func (f *fixture) latest() []shadowKeyRow {
	f.t.Helper()
	var out []shadowKeyRow
	require.NoError(f.t, f.db.SelectContext(f.ctx, &out, `
		SELECT id, nodeversiontimestamp FROM page_nodeversion
		WHERE nodeversionlatest = 1 ORDER BY id, nodeversiontimestamp`))
	return out
}

// shadow lists every shadow key.
func (f *fixture) shadow() []shadowKeyRow {
	f.t.Helper()
	var out []shadowKeyRow
	require.NoError(f.t, f.db.SelectContext(f.ctx, &out, `
		SELECT id, nodeversiontimestamp FROM page_nodeversion
		ORDER BY id, nodeversiontimestamp`))
	return out
}
