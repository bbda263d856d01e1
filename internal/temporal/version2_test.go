package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVersion2_Idempotent(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	f.insertPage(2, "B", 1)

	written, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)
	assert.False(t, written)

	written, err = v.CreateVersion2(f.ctx, f.db, folder1, 150, 7)
	require.NoError(t, err)
	assert.False(t, written, "no live change after 100")

	assert.Len(t, f.shadow(), 2)
}

func TestCreateVersion2_ReplacesConflictingVersion(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	f.insertPage(2, "B", 1)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	f.setTitle(1, "A2")
	written, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 8)
	require.NoError(t, err)
	assert.True(t, written)

	assert.Equal(t, []shadowKeyRow{{ID: 1, Timestamp: 100}, {ID: 2, Timestamp: 100}}, f.shadow())
	assert.Equal(t, map[int64]any{1: "A2", 2: "B"}, f.titles(v, folder1, 100))
	assert.Equal(t, []shadowKeyRow{{ID: 1, Timestamp: 100}, {ID: 2, Timestamp: 100}}, f.latest())
}

func TestGetDiff_SameTimestampIsEmpty(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	f.insertPage(2, "B", 1)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)
	f.setTitle(1, "A2")
	f.deletePage(2)
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 200, 7)
	require.NoError(t, err)

	for _, at := range []int64{Current, 0, 50, 100, 150, 200, 250} {
		diffs, err := v.GetDiff(f.ctx, f.db, folder1, at, at)
		require.NoError(t, err)
		assert.Empty(t, diffs, "t=%d", at)
	}
}

func TestCreateVersion2_LatestUniqueness(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	f.insertPage(2, "B", 1)
	f.insertPage(3, "C", 1)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	f.setTitle(1, "A2")
	f.deletePage(3)
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 200, 7)
	require.NoError(t, err)

	f.setTitle(1, "A3")
	f.insertPage(4, "D", 1)
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 300, 7)
	require.NoError(t, err)

	// One latest row per live id, at its newest timestamp.
	assert.Equal(t, []shadowKeyRow{
		{ID: 1, Timestamp: 300},
		{ID: 2, Timestamp: 100},
		{ID: 4, Timestamp: 300},
	}, f.latest())

	// Recomputing against the clock agrees.
	require.NoError(t, v.SetLatestFlag(f.ctx, f.db, folder1))
	assert.Equal(t, []shadowKeyRow{
		{ID: 1, Timestamp: 300},
		{ID: 2, Timestamp: 100},
		{ID: 4, Timestamp: 300},
	}, f.latest())
}

func TestCreateVersion2_FutureVersionKeepsLatestAtNow(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	f.setTitle(1, "A2")
	f.insertPage(2, "B", 1)
	written, err := v.CreateVersion2(f.ctx, f.db, folder1, 20_000, 7)
	require.NoError(t, err)
	assert.True(t, written)

	// The clock is at 10000: the version at 20000 is not in effect yet.
	assert.Equal(t, []shadowKeyRow{{ID: 1, Timestamp: 100}}, f.latest())

	f.clock.Set(30_000)
	require.NoError(t, v.SetLatestFlag(f.ctx, f.db, folder1))
	assert.Equal(t, []shadowKeyRow{{ID: 1, Timestamp: 20_000}, {ID: 2, Timestamp: 20_000}}, f.latest())
}

func TestSetLatestFlag_WritesOnlyChangedFlags(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	f.insertPage(2, "B", 1)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)
	f.setTitle(1, "A2")
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 20_000, 7)
	require.NoError(t, err)

	f.exec("CREATE TABLE flag_writes (id INTEGER, latest INTEGER)")
	f.exec(`CREATE TRIGGER log_flag_writes AFTER UPDATE OF nodeversionlatest ON page_nodeversion
		BEGIN INSERT INTO flag_writes VALUES (NEW.id, NEW.nodeversionlatest); END`)
	writes := func() [][2]int64 {
		t.Helper()
		var rows []struct {
			ID     int64 `db:"id"`
			Latest int64 `db:"latest"`
		}
		require.NoError(t, f.db.SelectContext(f.ctx, &rows, "SELECT id, latest FROM flag_writes ORDER BY rowid"))
		out := make([][2]int64, 0, len(rows))
		for _, r := range rows {
			out = append(out, [2]int64{r.ID, r.Latest})
		}
		return out
	}

	require.NoError(t, v.SetLatestFlag(f.ctx, f.db, folder1))
	assert.Empty(t, writes(), "flags already right")

	f.clock.Set(30_000)
	require.NoError(t, v.SetLatestFlag(f.ctx, f.db, folder1))
	assert.Equal(t, [][2]int64{{1, 0}, {1, 1}}, writes(), "only page 1 moves")
	assert.Equal(t, []shadowKeyRow{{ID: 1, Timestamp: 20_000}, {ID: 2, Timestamp: 100}}, f.latest())
}

func TestCreateVersion2_BatchesAcrossChunks(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner(WithBatchSize(2))

	for id := int64(1); id <= 7; id++ {
		f.insertPage(id, "v1", 1)
	}
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	for _, id := range []int64{2, 3, 6} {
		f.setTitle(id, "v2")
	}
	f.deletePage(7)
	_, err = v.CreateVersion2(f.ctx, f.db, folder1, 200, 7)
	require.NoError(t, err)

	rows, err := v.GetVersionData(f.ctx, f.db, folder1, 200)
	require.NoError(t, err)
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids)

	diffs, err := v.GetDiff(f.ctx, f.db, folder1, 100, 200)
	require.NoError(t, err)
	kinds := make(map[int64]DiffKind)
	for _, d := range diffs {
		kinds[d.ID] = d.Kind
	}
	assert.Equal(t, map[int64]DiffKind{2: DiffMod, 3: DiffMod, 6: DiffMod, 7: DiffDel}, kinds)
}

func TestCreateVersion2_OtherRecordSetUntouched(t *testing.T) {
	f := newFixture(t, false)
	v := f.versioner()

	f.insertPage(1, "A", 1)
	f.insertPage(2, "other", 2)
	_, err := v.CreateVersion2(f.ctx, f.db, folder1, 100, 7)
	require.NoError(t, err)

	assert.Equal(t, []shadowKeyRow{{ID: 1, Timestamp: 100}}, f.shadow())
	assert.Empty(t, f.titles(v, []any{int64(2)}, 100))
}
