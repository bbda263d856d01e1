package harness

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeversion/internal/logger"
)

func loadLifecycle(t *testing.T) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "page_lifecycle.yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Lifecycle(t *testing.T) {
	result, err := Run(loadLifecycle(t))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Trace, 7)
	assert.Equal(t, map[string]any{"rewritten": int64(2), "deleted": int64(1)}, result.Trace[4].Result)
	assert.Equal(t, []ShadowState{
		{ID: 1, Timestamp: 250, User: 8, Latest: true},
		{ID: 2, Timestamp: 250, User: 7},
		{ID: 2, Timestamp: 300, User: 8, Removed: 300},
		{ID: 2, Timestamp: 500, User: 9, Latest: true},
	}, result.Shadow)
}

func TestRun_ExpectWrittenMismatch(t *testing.T) {
	s := loadLifecycle(t)
	no := false
	s.Steps[0].ExpectWritten = &no

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0 (version at 100): expected written=false, got true")
}

func TestRun_AssertionFailureIncludesTrace(t *testing.T) {
	s := loadLifecycle(t)
	s.Assertions = []Assertion{{
		Type:   AssertLatest,
		Latest: []ExpectedLatest{{ID: 1, Timestamp: 100}},
	}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]: Assertion failed: latest")
	assert.Contains(t, result.Errors[0], "[4] purge at=250")
	assert.Contains(t, result.Errors[0], "[6] version at=500 written=true")
}

func TestRun_DataAtMismatch(t *testing.T) {
	s := loadLifecycle(t)
	s.Assertions = []Assertion{{
		Type: AssertDataAt,
		At:   300,
		Rows: []map[string]any{{"id": 1, "title": "a"}},
	}}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "id 1 column title = a2")
}

func TestRun_FutureVersionAndClock(t *testing.T) {
	now := int64(150)
	later := int64(250)
	s := &Scenario{
		Name:        "future",
		Description: "latest follows the clock",
		Table:       "page",
		Setup:       []string{"INSERT INTO page (id, title, views) VALUES (1, 'a', 0)"},
		Steps: []Step{
			{Action: ActionVersion2, At: 100, Now: &now},
			{Exec: []string{"UPDATE page SET title = 'b' WHERE id = 1"}, Action: ActionVersion2, At: 200},
			{Action: ActionSetLatest, Now: &later},
		},
		Assertions: []Assertion{
			{Type: AssertLatest, Latest: []ExpectedLatest{{ID: 1, Timestamp: 200}}},
			{Type: AssertDataAt, At: 150, Rows: []map[string]any{{"id": 1, "title": "a"}}},
		},
	}
	s.Schema = loadLifecycle(t).Schema

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "set_latest", result.Trace[2].Action)
}

func TestRun_SetupFailure(t *testing.T) {
	s := loadLifecycle(t)
	s.Setup = []string{"INSERT INTO missing VALUES (1)"}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0]")
}

func TestRun_Logs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "debug", Output: &buf})

	_, err := Run(loadLifecycle(t), WithLogger(log))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"component":"harness"`)
	assert.Contains(t, buf.String(), `"message":"scenario finished"`)
	assert.Contains(t, buf.String(), `"run_id"`)
}
