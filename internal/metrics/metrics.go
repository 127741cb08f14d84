// Package metrics holds the Prometheus collectors for captures, persists and uploads.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var (
	CapturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gpsmarker_captures_total",
		Help: "Committed captures by category and save outcome",
	}, []string{"category", "outcome"})
	LowAccuracyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gpsmarker_low_accuracy_total",
		Help: "Fixes rejected by the accuracy gate",
	}, []string{"category"})
	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gpsmarker_uploads_total",
		Help: "Collection uploads by category and outcome",
	}, []string{"category", "outcome"})
	UploadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gpsmarker_upload_duration_ms",
		Help:    "Collection upload duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
	})
	ReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gpsmarker_received_collections_total",
		Help: "Collections accepted by the receiver by collection type",
	}, []string{"type"})
	ReceivedFeaturesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gpsmarker_received_features_total",
		Help: "Features accepted by the receiver",
	})
)

func init() {
	prometheus.MustRegister(CapturesTotal)
	prometheus.MustRegister(LowAccuracyTotal)
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(UploadDurationMs)
	prometheus.MustRegister(ReceivedTotal)
	prometheus.MustRegister(ReceivedFeaturesTotal)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }

// WriteTextfile dumps the registered metrics in the text exposition format,
// for node_exporter's textfile collector. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
