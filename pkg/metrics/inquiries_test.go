package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInquiryMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInquiryMetrics(reg)

	m.IncSubmission(OutcomeCreated)
	m.IncSubmission(OutcomeCreated)
	m.IncSubmission(OutcomeRateLimited)
	m.ObserveDispatch("smtp", true, 120*time.Millisecond)
	m.ObserveDispatch("smtp", false, time.Second)

	if got := testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeCreated)); got != 2 {
		t.Fatalf("expected created=2, got %f", got)
	}
	if got := testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeRateLimited)); got != 1 {
		t.Fatalf("expected rate_limited=1, got %f", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "inquiry_dispatch_duration_seconds", "result", "failed"); err != nil {
		t.Fatalf("fetch dispatch: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed dispatch sum 1s, got %f", got)
	}
}

func TestInquiryMetricsNilSafe(t *testing.T) {
	var m *InquiryMetrics
	m.IncSubmission(OutcomeError)
	m.ObserveDispatch("ses", true, time.Millisecond)

	NewInquiryMetrics(nil).IncSubmission(OutcomeCreated)
}
