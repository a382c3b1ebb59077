package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrument_CountsRequests(t *testing.T) {
	h := Instrument("test_route", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("test_route", "201", "post"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("test_route", "201", "post"))

	assert.Equal(t, before+1, after)
}

func TestReportsGenerated(t *testing.T) {
	before := testutil.ToFloat64(ReportsGenerated.WithLabelValues("xlsx"))
	ReportsGenerated.WithLabelValues("xlsx").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ReportsGenerated.WithLabelValues("xlsx")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	ProductsImported.Add(0)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockroom_products_imported_total")
}
