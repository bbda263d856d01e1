package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeversion/internal/temporal"
)

func TestParseParams(t *testing.T) {
	assert.Nil(t, parseParams(nil))
	assert.Equal(t, []any{int64(3), "draft", int64(-1), "1.5"}, parseParams([]string{"3", "draft", "-1", "1.5"}))
}

func TestParseJoin(t *testing.T) {
	j, err := parseJoin("page.folder_id=folder.id")
	require.NoError(t, err)
	assert.Equal(t, temporal.Join{Table: "page", Column: "folder_id", JoinedTable: "folder", JoinedColumn: "id"}, j)

	j, err = parseJoin(" page.folder_id = folder.id ")
	require.NoError(t, err)
	assert.Equal(t, "folder", j.JoinedTable)
}

func TestParseJoin_Invalid(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"page.folder_id", "missing '='"},
		{"page=folder.id", "left side"},
		{"page.folder_id=folder", "right side"},
		{".x=folder.id", "left side"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := parseJoin(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSelectionOptions_Joins(t *testing.T) {
	sel := SelectionOptions{Joins: []string{"page.folder_id=folder.id", "folder.node_id=node.id"}}
	joins, err := sel.joins()
	require.NoError(t, err)
	require.Len(t, joins, 2)
	assert.Equal(t, "node", joins[1].JoinedTable)

	sel.Joins = append(sel.Joins, "bad")
	_, err = sel.joins()
	assert.Error(t, err)
}
