package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageTitleScenario(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	written, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)
	assert.True(t, written)

	f.setTitle(1, "B")
	written, err = v.CreateVersion2(f.ctx, f.db, folder1, 200, 7)
	require.NoError(t, err)
	assert.True(t, written)

	diffs, err := v.GetDiff(f.ctx, f.db, folder1, 100, 200)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffMod, diffs[0].Kind)
	assert.Equal(t, int64(1), diffs[0].ID)
	assert.Equal(t, []string{"title"}, diffs[0].Columns)
	assert.Equal(t, "A", diffs[0].Old.Get("title"))
	assert.Equal(t, "B", diffs[0].New.Get("title"))

	assert.Equal(t, map[int64]any{1: "A"}, f.titles(v, folder1, 150))
	assert.Equal(t, map[int64]any{1: "B"}, f.titles(v, folder1, 250))

	require.NoError(t, v.RestoreVersion(f.ctx, f.db, folder1, 100))
	assert.Equal(t, map[int64]any{1: "A"}, f.titles(v, folder1, Current))
}

func TestDeletionScenario(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	f.insertPage(2, "B", 1)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	f.deletePage(2)
	written, err := v.CreateVersion2(f.ctx, f.db, folder1, 200, 7)
	require.NoError(t, err)
	assert.True(t, written)

	diffs, err := v.GetDiff(f.ctx, f.db, folder1, 100, 200)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffDel, diffs[0].Kind)
	assert.Equal(t, int64(2), diffs[0].ID)
	assert.Nil(t, diffs[0].New)

	assert.Contains(t, f.titles(v, folder1, 150), int64(2))
	assert.NotContains(t, f.titles(v, folder1, 250), int64(2))
	assert.Equal(t, []shadowKeyRow{{ID: 1, Timestamp: 100}}, f.latest(), "removed record keeps no latest row")

	f.insertPage(2, "B2", 1)
	written, err = v.CreateVersion2(f.ctx, f.db, folder1, 300, 7)
	require.NoError(t, err)
	assert.True(t, written)

	diffs, err = v.GetDiff(f.ctx, f.db, folder1, 200, 300)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffAdd, diffs[0].Kind)
	assert.Equal(t, int64(2), diffs[0].ID)
	assert.Equal(t, "B2", diffs[0].New.Get("title"))

	assert.Equal(t, map[int64]any{1: "A", 2: "B2"}, f.titles(v, folder1, 350))
}
