// Package metrics holds the prometheus collectors for household operations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultError     = "error"
	ResultHit       = "hit"
	ResultMiss      = "miss"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

type Metrics struct {
	RegistrationsTotal   *prometheus.CounterVec
	DeletionsTotal       prometheus.Counter
	ActivationsTotal     prometheus.Counter
	ReadingsIngested     prometheus.Counter
	StorageErrorsTotal   *prometheus.CounterVec
	AggregationDuration  prometheus.Histogram
	AggregationCacheHits *prometheus.CounterVec
}

// Get returns the process-wide collectors, registering them with the default
// registry on first use.
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RegistrationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "household_registrations_total",
					Help: "Household registration attempts by result",
				},
				[]string{"result"}, // ok, duplicate, error
			),
			DeletionsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "household_deletions_total",
				Help: "Household delete operations committed",
			}),
			ActivationsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "household_activations_total",
				Help: "Active household replacements",
			}),
			ReadingsIngested: promauto.NewCounter(prometheus.CounterOpts{
				Name: "household_readings_ingested_total",
				Help: "Sensor readings appended to sensor_data",
			}),
			StorageErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "household_storage_errors_total",
					Help: "Storage failures by operation",
				},
				[]string{"op"},
			),
			AggregationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "household_aggregation_duration_seconds",
				Help:    "Time spent reading and grouping sensor rows",
				Buckets: prometheus.DefBuckets,
			}),
			AggregationCacheHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "household_aggregation_cache_total",
					Help: "Aggregation cache lookups by result",
				},
				[]string{"result"}, // hit, miss
			),
		}
	})
	return globalMetrics
}
