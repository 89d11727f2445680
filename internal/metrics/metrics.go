// Package metrics holds the Prometheus collectors for the tracker. Collectors
// are registered on the default registry at init, the way promauto does it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atlastrack/atlastrack/pkg/types"
)

var (
	// FetchesTotal counts fetch attempts per source and outcome (ok|error).
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlastrack_fetches_total",
			Help: "Total number of source page fetches",
		},
		[]string{"source", "outcome"},
	)

	// FetchDuration tracks page fetch latency.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlastrack_fetch_duration_seconds",
			Help:    "Source page fetch latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"source"},
	)

	// ExtractionsTotal counts which strategy produced each extracted field.
	// strategy is "none" when every strategy missed.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlastrack_extractions_total",
			Help: "Field extractions by strategy",
		},
		[]string{"source", "field", "strategy"},
	)

	// CyclesTotal counts scheduler cycles per kind (full|distance) and outcome.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlastrack_cycles_total",
			Help: "Total number of refresh cycles",
		},
		[]string{"cycle", "outcome"},
	)

	// Magnitude holds the latest merged magnitude per field.
	Magnitude = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "atlastrack_magnitude",
			Help: "Latest magnitude values in the snapshot",
		},
		[]string{"field"},
	)

	// DistanceKm holds the latest distance to Earth.
	DistanceKm = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atlastrack_distance_km",
		Help: "Latest distance to Earth in kilometres",
	})

	// Abnormal is 1 while magStatus is abnormal.
	Abnormal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atlastrack_mag_abnormal",
		Help: "1 when the latest magnitude is classified abnormal",
	})
)

// ObserveFetch records one fetch attempt.
func ObserveFetch(source string, ok bool, took time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	FetchesTotal.WithLabelValues(source, outcome).Inc()
	FetchDuration.WithLabelValues(source).Observe(took.Seconds())
}

// ObserveExtraction records the strategy that produced field, or "none".
func ObserveExtraction(source, field, strategy string) {
	if strategy == "" {
		strategy = "none"
	}
	ExtractionsTotal.WithLabelValues(source, field, strategy).Inc()
}

// ObserveCycle records the outcome of one scheduler cycle.
func ObserveCycle(cycle, outcome string) {
	CyclesTotal.WithLabelValues(cycle, outcome).Inc()
}

// SetSnapshot mirrors the snapshot's numeric fields into the gauges. Nil
// fields leave the previous gauge value in place.
func SetSnapshot(s types.Snapshot) {
	setIf(Magnitude.WithLabelValues(types.FieldLatestMag), s.LatestMag)
	setIf(Magnitude.WithLabelValues(types.FieldObservedMag), s.ObservedMag)
	setIf(Magnitude.WithLabelValues(types.FieldPredictedMag), s.PredictedMag)
	setIf(DistanceKm, s.DistanceKm)
	if s.MagStatus == types.MagAbnormal {
		Abnormal.Set(1)
	} else {
		Abnormal.Set(0)
	}
}

func setIf(g prometheus.Gauge, v *float64) {
	if v != nil {
		g.Set(*v)
	}
}
