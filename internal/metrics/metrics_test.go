package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInvocation(t *testing.T) {
	m := New()

	m.RecordInvocation("text_upper", "success", 0.01)
	m.RecordInvocation("text_upper", "success", 0.02)
	m.RecordInvocation("text_upper", "error", 0.01)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.InvocationsTotal.WithLabelValues("text_upper", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InvocationsTotal.WithLabelValues("text_upper", "error")))
}

func TestRecordBatchItem(t *testing.T) {
	m := New()

	m.RecordBatch("text_upper", "success")
	m.RecordBatchItem("text_upper", "success")
	m.RecordBatchItem("text_upper", "error")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.BatchesTotal.WithLabelValues("text_upper", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BatchItemsTotal.WithLabelValues("text_upper", "error")))
}

func TestRecordAuditWriteFailure(t *testing.T) {
	m := New()
	m.RecordAuditWriteFailure()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuditWriteFailuresTotal))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordInvocation("text_upper", "success", 0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "toolpipe_invocations_total")
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordInvocation("x", "success", 0)
		m.RecordBatch("x", "success")
		m.RecordBatchItem("x", "success")
		m.RecordAuditWriteFailure()
	})
}
