package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics implements pebblestore.MetricsHook.
type StorageMetrics struct {
	ReadDuration   prometheus.Histogram
	CommitDuration prometheus.Histogram
	BytesWritten   prometheus.Counter
	BytesRead      prometheus.Counter
	BatchOps       prometheus.Counter
}

var storageBuckets = []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, 1}

// NewStorageMetrics creates and registers storage metrics on the given registry.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	m := &StorageMetrics{
		ReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_duration_seconds",
			Help:      "Point read latency.",
			Buckets:   storageBuckets,
		}),
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_duration_seconds",
			Help:      "Batch commit latency including WAL sync.",
			Buckets:   storageBuckets,
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "written_bytes_total",
			Help:      "Bytes committed to the store.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_bytes_total",
			Help:      "Bytes returned by point reads.",
		}),
		BatchOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_operations_total",
			Help:      "Operations committed in batches.",
		}),
	}
	reg.MustRegister(m.ReadDuration, m.CommitDuration, m.BytesWritten, m.BytesRead, m.BatchOps)
	return m
}

func (m *StorageMetrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.ReadDuration.Observe(elapsed.Seconds())
	m.BytesRead.Add(float64(bytes))
}

func (m *StorageMetrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	m.CommitDuration.Observe(elapsed.Seconds())
	m.BatchOps.Add(float64(numOps))
	m.BytesWritten.Add(float64(bytes))
}
