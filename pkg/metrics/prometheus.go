package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	EmailsSent         prometheus.Counter
	SendFailures       prometheus.Counter
	RepliesDetected    prometheus.Counter
	FollowUpsScheduled prometheus.Counter
	FollowUpsExecuted  prometheus.Counter
	FollowUpsCancelled prometheus.Counter
	FollowUpsSkipped   prometheus.Counter
	Classifications    *prometheus.CounterVec
	BackendFallbacks   *prometheus.CounterVec
	ResponsesGenerated *prometheus.CounterVec
	SendDuration       prometheus.Histogram
	ErrorsCount        *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		EmailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "The total number of outbound emails attempted",
		}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "The total number of transport send failures",
		}),
		RepliesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_detected_total",
			Help:      "The total number of inbound replies correlated to sent emails",
		}),
		FollowUpsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followups_scheduled_total",
			Help:      "The total number of follow-up events scheduled",
		}),
		FollowUpsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followups_executed_total",
			Help:      "The total number of follow-up events executed",
		}),
		FollowUpsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followups_cancelled_total",
			Help:      "The total number of follow-up events cancelled on reply",
		}),
		FollowUpsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followups_skipped_total",
			Help:      "The total number of follow-up events skipped at execution time",
		}),
		Classifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "The total number of sentiment classifications by outcome",
		}, []string{"sentiment"}),
		BackendFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_fallbacks_total",
			Help:      "The total number of model-backend failures that fell back to the local strategy",
		}, []string{"backend"}),
		ResponsesGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_generated_total",
			Help:      "The total number of generated responses by approval requirement",
		}, []string{"approval"}),
		SendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Time taken for one transport send",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
