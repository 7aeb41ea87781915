package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCartOperation(t *testing.T) {
	before := testutil.ToFloat64(cartOperations.WithLabelValues("add_item", "error"))
	RecordCartOperation("add_item", false)
	assert.Equal(t, before+1, testutil.ToFloat64(cartOperations.WithLabelValues("add_item", "error")))
}

func TestAddOverduePayments(t *testing.T) {
	before := testutil.ToFloat64(overduePayments)
	AddOverduePayments(3)
	assert.Equal(t, before+3, testutil.ToFloat64(overduePayments))
}

func TestHandler(t *testing.T) {
	ObserveHTTPRequest(http.MethodGet, "/api/cart", "200", 10*time.Millisecond)
	RecordInstallmentOperation("create", true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "storefront_http_requests_total")
	assert.Contains(t, body, `storefront_installment_operations_total{operation="create",status="success"}`)
}
