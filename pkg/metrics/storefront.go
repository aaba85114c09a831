package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records cart and checkout activity.
type StorefrontMetrics struct {
	cartMutations *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	submitTime    *prometheus.HistogramVec
	replays       *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutation attempts by operation and outcome.",
	}, []string{"operation", "outcome"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Checkout submissions by payment method and outcome.",
	}, []string{"method", "outcome"})
	submitTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_submit_duration_seconds",
		Help:    "Duration of checkout submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	replays := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pending_intent_replays_total",
		Help: "Pending add-intent replay attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(cartMutations, submissions, submitTime, replays)
	return &StorefrontMetrics{
		cartMutations: cartMutations,
		submissions:   submissions,
		submitTime:    submitTime,
		replays:       replays,
	}
}

// IncCartMutation counts one cart mutation attempt.
func (m *StorefrontMetrics) IncCartMutation(operation, outcome string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncSubmission counts one checkout submission.
func (m *StorefrontMetrics) IncSubmission(method, outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// ObserveSubmitDuration records how long a checkout submission took.
func (m *StorefrontMetrics) ObserveSubmitDuration(method string, duration time.Duration) {
	if m == nil || m.submitTime == nil {
		return
	}
	m.submitTime.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncReplay counts one pending-intent replay attempt.
func (m *StorefrontMetrics) IncReplay(outcome string) {
	if m == nil || m.replays == nil {
		return
	}
	m.replays.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
