// Package metrics provides Prometheus metrics for nodeversion.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the temporal store's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	VersionsCreated   *prometheus.CounterVec
	ShadowRowsWritten *prometheus.CounterVec
	PointInTimeReads  *prometheus.CounterVec
	Restores          *prometheus.CounterVec
	PurgedRows        *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them process-wide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		VersionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeversion_versions_created_total",
				Help: "Versions that wrote at least one shadow row",
			},
			[]string{"table", "algorithm"},
		),
		ShadowRowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeversion_shadow_rows_written_total",
				Help: "Shadow rows inserted",
			},
			[]string{"table"},
		),
		PointInTimeReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeversion_point_in_time_reads_total",
				Help: "Reconstructions of a record set at a past timestamp",
			},
			[]string{"table"},
		),
		Restores: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeversion_restores_total",
				Help: "Live record sets replaced by a past state",
			},
			[]string{"table"},
		),
		PurgedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeversion_purged_rows_total",
				Help: "Shadow rows deleted by purges",
			},
			[]string{"table"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeversion_operation_errors_total",
				Help: "Temporal store operations that returned an error",
			},
			[]string{"table", "operation"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nodeversion_operation_duration_seconds",
				Help:    "Duration of temporal store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table", "operation"},
		),
	}
}

// ObserveOperation records the duration and outcome of an operation.
func (m *Metrics) ObserveOperation(table, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(table, op).Observe(d.Seconds())
	if err != nil {
		m.OperationErrors.WithLabelValues(table, op).Inc()
	}
}

// VersionCreated counts a version that wrote shadow rows.
func (m *Metrics) VersionCreated(table, algorithm string) {
	if m == nil {
		return
	}
	m.VersionsCreated.WithLabelValues(table, algorithm).Inc()
}

// RowsWritten counts inserted shadow rows.
func (m *Metrics) RowsWritten(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ShadowRowsWritten.WithLabelValues(table).Add(float64(n))
}

// PointInTimeRead counts a shadow reconstruction.
func (m *Metrics) PointInTimeRead(table string) {
	if m == nil {
		return
	}
	m.PointInTimeReads.WithLabelValues(table).Inc()
}

// Restored counts a restore.
func (m *Metrics) Restored(table string) {
	if m == nil {
		return
	}
	m.Restores.WithLabelValues(table).Inc()
}

// Purged counts deleted shadow rows.
func (m *Metrics) Purged(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PurgedRows.WithLabelValues(table).Add(float64(n))
}
