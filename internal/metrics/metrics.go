// Package metrics provides Prometheus instrumentation for the moderation
// service. It exposes counters for filter decisions, reports and suspension
// checks, histograms for rule loading and HTTP latency, and a gauge for live
// feed connections.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ContentChecks counts content filter decisions, labeled by outcome:
	// "passed", "rejected" or "error".
	ContentChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_content_checks_total",
		Help: "Content filter decisions",
	}, []string{"outcome"})

	// ContentRejections counts rejected submissions by rule category.
	ContentRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_content_rejections_total",
		Help: "Submissions rejected by the content filter, by rule category",
	}, []string{"category"})

	// RuleLoadDuration records how long loading the restricted-word set takes.
	RuleLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusqa_rule_load_duration_seconds",
		Help:    "Time to load the restricted-word rule set",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
	})

	// ReportsFiled counts reports filed, labeled by content type.
	ReportsFiled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_reports_filed_total",
		Help: "Reports filed against content",
	}, []string{"content_type"})

	// ReportsResolved counts report resolutions, labeled by resolution.
	ReportsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_reports_resolved_total",
		Help: "Reports resolved by moderators",
	}, []string{"resolution"})

	// SuspensionChecks counts suspension guard decisions: "allowed",
	// "temporary", "permanent" or "expired".
	SuspensionChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_suspension_checks_total",
		Help: "Suspension guard decisions on authenticated requests",
	}, []string{"decision"})

	// Suspensions counts suspensions applied, labeled by kind
	// ("temporary" or "permanent").
	Suspensions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_suspensions_total",
		Help: "User suspensions applied",
	}, []string{"kind"})

	// ContentDeleted counts moderator content deletions by content type.
	ContentDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_content_deleted_total",
		Help: "Content items deleted by moderators",
	}, []string{"content_type"})

	// RequestLatency records HTTP request latency by route pattern.
	RequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusqa_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"method", "route", "status"})

	// FeedConnections tracks the current number of admin feed connections.
	FeedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campusqa_feed_connections",
		Help: "Current number of admin moderation feed connections",
	})
)

func init() {
	prometheus.MustRegister(
		ContentChecks,
		ContentRejections,
		RuleLoadDuration,
		ReportsFiled,
		ReportsResolved,
		SuspensionChecks,
		Suspensions,
		ContentDeleted,
		RequestLatency,
		FeedConnections,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
