package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the extraction service.
type Metrics struct {
	FilesClassified *prometheus.CounterVec // labels: format={interval_xml,interval_xml_limited,monthly_xml,smt_csv}
	FilesRejected   *prometheus.CounterVec // labels: reason={unsupported_file,web_page,not_green_button,billing_csv,unrecognized}

	Extractions        *prometheus.CounterVec // labels: source={file_upload,ai_scan,live_portal,regional_default}, method
	ExtractionDuration prometheus.Histogram

	// Portal session metrics.
	PortalRequests *prometheus.CounterVec // labels: outcome={success,auth_error,error}

	// Record publishing metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usage_engine",
			Name:      "files_classified_total",
			Help:      "Accepted uploads by detected format.",
		}, []string{"format"}),
		FilesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usage_engine",
			Name:      "files_rejected_total",
			Help:      "Rejected uploads by rejection reason.",
		}, []string{"reason"}),
		Extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usage_engine",
			Name:      "extractions_total",
			Help:      "Normalized usage records produced, by source and estimation method.",
		}, []string{"source", "method"}),
		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "usage_engine",
			Name:      "extraction_duration_seconds",
			Help:      "Duration of a complete classify-parse-annualize cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		PortalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usage_engine",
			Name:      "portal_requests_total",
			Help:      "Live metering-portal fetches by outcome.",
		}, []string{"outcome"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usage_engine",
			Name:      "records_published_total",
			Help:      "Normalized records written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usage_engine",
			Name:      "publish_errors_total",
			Help:      "Failures writing normalized records to the sink topic.",
		}),
	}

	prometheus.MustRegister(
		m.FilesClassified,
		m.FilesRejected,
		m.Extractions,
		m.ExtractionDuration,
		m.PortalRequests,
		m.RecordsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesClassified:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "usage_engine", Name: "files_classified_total"}, []string{"format"}),
		FilesRejected:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "usage_engine", Name: "files_rejected_total"}, []string{"reason"}),
		Extractions:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "usage_engine", Name: "extractions_total"}, []string{"source", "method"}),
		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "usage_engine", Name: "extraction_duration_seconds"}),
		PortalRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "usage_engine", Name: "portal_requests_total"}, []string{"outcome"}),
		RecordsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usage_engine", Name: "records_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usage_engine", Name: "publish_errors_total"}),
	}
}
