package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ScansTotal          *prometheus.CounterVec
	ScannedImagesTotal  prometheus.Counter
	AltGenerationsTotal *prometheus.CounterVec
	ApplyGroupsTotal    *prometheus.CounterVec
	RemoteCallDuration  *prometheus.HistogramVec
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		)

		ScansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scans_total",
				Help: "Total number of feed scans.",
			},
			[]string{"status"}, // success, auth_failed, feed_failed, ledger_failed
		)

		ScannedImagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scanned_images_total",
				Help: "Total number of gallery images observed by scans.",
			},
		)

		AltGenerationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alt_generations_total",
				Help: "Alt-text generation attempts by outcome.",
			},
			[]string{"outcome"}, // generated, cached, failed, skipped
		)

		ApplyGroupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apply_groups_total",
				Help: "Record writes attempted by apply calls.",
			},
			[]string{"status"}, // success, failure
		)

		RemoteCallDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remote_call_duration_seconds",
				Help:    "Duration of calls to the remote record store.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"operation"},
		)
	})
}
