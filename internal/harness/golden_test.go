package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Lifecycle(t *testing.T) {
	err := RunWithGolden(t, loadLifecycle(t))
	require.NoError(t, err)
}

func TestSnapshot_ExcludesRunID(t *testing.T) {
	written := true
	result := NewResult("0190aaaa-0000-7000-8000-000000000000")
	result.AddTrace(TraceEvent{Step: 0, Action: ActionVersion2, At: 5, Written: &written})

	data, err := Snapshot("tiny", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"tiny","shadow":[],"trace":[{"action":"version2","at":5,"step":0,"written":true}]}`,
		string(data))
}
