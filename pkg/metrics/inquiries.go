package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Inquiry submission outcomes.
const (
	OutcomeCreated       = "created"
	OutcomeNotFound      = "not_found"
	OutcomeInvalid       = "invalid"
	OutcomeRateLimited   = "rate_limited"
	OutcomeCaptchaFailed = "captcha_failed"
	OutcomeError         = "error"
)

// InquiryMetrics tracks public inquiry intake and seller email dispatch.
type InquiryMetrics struct {
	submissions *prometheus.CounterVec
	dispatch    *prometheus.HistogramVec
}

// NewInquiryMetrics registers the inquiry metrics on reg. A nil registerer
// yields a no-op recorder.
func NewInquiryMetrics(reg prometheus.Registerer) *InquiryMetrics {
	if reg == nil {
		return &InquiryMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inquiry_submissions_total",
		Help: "Public inquiry submissions by outcome.",
	}, []string{"outcome"})
	dispatch := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inquiry_dispatch_duration_seconds",
		Help:    "Seller notification dispatch latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"backend", "result"})
	reg.MustRegister(submissions, dispatch)
	return &InquiryMetrics{submissions: submissions, dispatch: dispatch}
}

// IncSubmission counts one submission with the given outcome.
func (m *InquiryMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDispatch records how long one notification attempt took.
func (m *InquiryMetrics) ObserveDispatch(backend string, success bool, duration time.Duration) {
	if m == nil || m.dispatch == nil {
		return
	}
	result := "failed"
	if success {
		result = "sent"
	}
	m.dispatch.WithLabelValues(normalizeLabel(backend), result).Observe(duration.Seconds())
}
