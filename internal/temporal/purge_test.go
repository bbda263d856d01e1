package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// purgeHistory writes the history used by the purge tests:
// page 1 A@100 B@200 C@300, page 2 added at 100 and removed at 200,
// page 3 added at 250.
func purgeHistory(t *testing.T, f *fixture, v *Versioner) {
	t.Helper()
	f.insertPage(1, "A", 1)
	f.insertPage(2, "X", 1)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	f.setTitle(1, "B")
	f.deletePage(2)
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 200, 7)
	require.NoError(t, err)

	f.insertPage(3, "N", 1)
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 250, 7)
	require.NoError(t, err)

	f.setTitle(1, "C")
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 300, 7)
	require.NoError(t, err)
}

func TestPurgeVersions_PreservesPointInTimeReads(t *testing.T) {
	for _, autoIncrement := range []bool{false, true} {
		name := "by key"
		if autoIncrement {
			name = "by auto_id"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, autoIncrement)
			v := f.versioner()
			purgeHistory(t, f, v)

			atCutoff, err := v.GetVersionData(f.ctx, f.db, folder1, 250)
			require.NoError(t, err)
			later, err := v.GetVersionData(f.ctx, f.db, folder1, 300)
			require.NoError(t, err)

			res, err := v.PurgeVersions(f.ctx, f.db, folder1, 250)
			require.NoError(t, err)
			assert.Equal(t, PurgeResult{Rewritten: 1, Deleted: 3}, res)

			got, err := v.GetVersionData(f.ctx, f.db, folder1, 250)
			require.NoError(t, err)
			assert.Equal(t, atCutoff, got)
			got, err = v.GetVersionData(f.ctx, f.db, folder1, 300)
			require.NoError(t, err)
			assert.Equal(t, later, got)

			versions, err := v.GetVersions(f.ctx, f.db, folder1)
			require.NoError(t, err)
			for _, ver := range versions {
				assert.GreaterOrEqual(t, ver.Timestamp, int64(250))
			}
			assert.Equal(t, []shadowKeyRow{
				{ID: 1, Timestamp: 250},
				{ID: 1, Timestamp: 300},
				{ID: 3, Timestamp: 250},
			}, f.shadow())
		})
	}
}

func TestPurgeVersions_Idempotent(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()
	purgeHistory(t, f, v)

	_, err := v.PurgeVersions(f.ctx, f.db, folder1, 250)
	require.NoError(t, err)
	res, err := v.PurgeVersions(f.ctx, f.db, folder1, 250)
	require.NoError(t, err)
	assert.Equal(t, PurgeResult{}, res)
}

func TestPurgeVersions_LeavesOtherRecordSetHistory(t *testing.T) {
	f := newFixture(t, false)
	v1 := f.versioner()
	v2 := f.versioner()
	folder2 := []any{int64(2)}

	f.insertPage(5, "moving", 1)
	_, err := v1.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	f.exec("UPDATE page SET folder_id = 2 WHERE id = 5")
	_, err = v1.CreateVersion2(f.ctx, f.db, folder1, 200, 7)
	require.NoError(t, err)
	_, err = v2.CreateVersion2(f.ctx, f.db, folder2, 210, 7)
	require.NoError(t, err)

	res, err := v1.PurgeVersions(f.ctx, f.db, folder1, 300)
	require.NoError(t, err)
	assert.Equal(t, PurgeResult{Rewritten: 0, Deleted: 2}, res)

	assert.Empty(t, f.titles(v1, folder1, 300))
	assert.Equal(t, map[int64]any{5: "moving"}, f.titles(v2, folder2, 300))
	assert.Equal(t, []shadowKeyRow{{ID: 5, Timestamp: 210}}, f.latest())

	require.NoError(t, v1.SetLatestFlag(f.ctx, f.db, folder1))
	assert.Equal(t, []shadowKeyRow{{ID: 5, Timestamp: 210}}, f.latest(), "latest flag of folder 2 kept")
}
