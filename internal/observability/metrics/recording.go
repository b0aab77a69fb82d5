package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recordings_created_total",
			Help: "Total number of recordings created",
		},
	)

	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Total number of reports built from the store",
		},
		[]string{"period"},
	)

	ReportRecordsScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_records_scanned",
			Help:    "Number of recordings loaded per report",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	ReportCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_cache_requests_total",
			Help: "Report cache lookups by result",
		},
		[]string{"result"},
	)

	LiveSubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_subscribers_active",
			Help: "Number of connected live feed subscribers",
		},
	)

	LiveMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_messages_dropped_total",
			Help: "Live feed messages dropped because a subscriber was too slow",
		},
	)
)
