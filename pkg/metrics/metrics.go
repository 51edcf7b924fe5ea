package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "sitepress"

	metricLabelKind     = "kind"
	metricLabelStatus   = "status"
	metricLabelEncoding = "encoding"
	metricLabelSource   = "source"
	metricLabelPriority = "priority"
)

var (
	// BuildsCompletedCounter count the number of published generations
	BuildsCompletedCounter = newCounterVec(
		"builds_completed_count",
		"Number of builds that were successfully published",
	)
	// BuildsFailedCounter count the number of builds that had an error
	BuildsFailedCounter = newCounterVec(
		"builds_failed_count",
		"Number of builds that failed due to an error",
	)
	// BuildsRejectedCounter count the number of build requests arriving while a build runs
	BuildsRejectedCounter = newCounterVec(
		"builds_rejected_count",
		"Number of build requests rejected because a build was in progress",
		metricLabelSource,
	)
	// BuildDuration observe the duration of each build
	BuildDuration = newSummaryVec(
		"build_duration_seconds",
		"Duration in seconds for each build from configuration loading to publish",
	)
	// BucketDuration observe the dispatch duration of each priority bucket
	BucketDuration = newSummaryVec(
		"bucket_duration_seconds",
		"Duration in seconds to dispatch all resources of a priority bucket",
		metricLabelPriority,
	)
	// ResourcesGauge number of resources per kind in the live generation
	ResourcesGauge = newGaugeVec(
		"resources_total",
		"Number of resources per kind in the published generation",
		metricLabelKind,
	)
	// ResponsesGauge number of responses in the live generation
	ResponsesGauge = newGaugeVec(
		"responses_total",
		"Number of responses in the published generation",
	)
	// StaticRequestCounter count static requests by status and chosen encoding
	StaticRequestCounter = newCounterVec(
		"static_request_count",
		"Number of static requests",
		metricLabelStatus, metricLabelEncoding,
	)
	// ManifestPersistFailedCounter count the number of failed attempts to persist build manifests
	ManifestPersistFailedCounter = newCounterVec(
		"manifest_persist_failed_count",
		"Number of failures to store the build manifest",
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
