package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.VersionCreated("page", "diff")
	m.VersionCreated("page", "diff")
	m.RowsWritten("page", 3)
	m.RowsWritten("page", 0)
	m.PointInTimeRead("page")
	m.Restored("page")
	m.Purged("page", 5)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.VersionsCreated.WithLabelValues("page", "diff")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ShadowRowsWritten.WithLabelValues("page")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PointInTimeReads.WithLabelValues("page")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Restores.WithLabelValues("page")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.PurgedRows.WithLabelValues("page")))
}

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("page", "restore", time.Millisecond, nil)
	m.ObserveOperation("page", "restore", time.Millisecond, errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationErrors.WithLabelValues("page", "restore")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.VersionCreated("page", "full")
	m.RowsWritten("page", 1)
	m.PointInTimeRead("page")
	m.Restored("page")
	m.Purged("page", 1)
	m.ObserveOperation("page", "read", time.Second, errors.New("x"))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
