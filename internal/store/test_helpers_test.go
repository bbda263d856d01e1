package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeversion/internal/schema"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pageTable registers the page table used across tests.
func pageTable(t *testing.T) *schema.Table {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.Table{
		Name: "page",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInteger},
			{Name: "title", Type: schema.TypeText, NotNull: true},
			{Name: "views", Type: schema.TypeInteger, Unversioned: true},
		},
	}))
	tbl, err := reg.Lookup("page")
	require.NoError(t, err)
	return tbl
}
