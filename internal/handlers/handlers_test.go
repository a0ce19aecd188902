package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/voyage-billing/internal/billing"
	"github.com/diewo77/voyage-billing/internal/httpx"
	"github.com/diewo77/voyage-billing/internal/services"
	"github.com/diewo77/voyage-billing/internal/validation"
)

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestExtractEndpoint(t *testing.T) {
	h := NewBillingHandler(nil, nil)
	w := post(h.Extract, `{"days":[{"day_number":1,"accommodation":{"name":"Hotel A"},"meals":{"breakfast":false,"lunch":false,"dinner":false},"activities":["City tour","Museum"]}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Items []billing.LineItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 3)
	assert.Equal(t, "Day 1: Hotel A - Accommodation", body.Items[0].Description)
	assert.Equal(t, "Day 1: City tour", body.Items[1].Description)
	assert.Equal(t, "Day 1: Museum", body.Items[2].Description)
	for _, it := range body.Items {
		assert.True(t, it.Amount().IsZero())
	}
}

func TestTotalsEndpoint(t *testing.T) {
	h := NewBillingHandler(nil, nil)

	w := post(h.Totals, `{"items":[{"description":"Goa","category":"package","quantity":"1","unit_price":"1000","total_price":"1000"}],"tax_rate":"10"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body totalsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "1000", body.Totals.Subtotal.String())
	assert.Equal(t, "100", body.Totals.TaxAmount.String())
	assert.Equal(t, "1100", body.Totals.TotalAmount.String())
	assert.Empty(t, body.Warnings)

	w = post(h.Totals, `{"items":[],"mode":"detailed","discount":{"type":"percentage","value":"150"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Warnings, billing.WarnDiscountOverHundred)

	w = post(h.Totals, `{"items":[],"mode":"itemised"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = post(h.Totals, `{"items":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTotalsEndpointPricesItemsWithoutTotal(t *testing.T) {
	h := NewBillingHandler(nil, nil)
	tests := []struct {
		name string
		item string
		want string
	}{
		{"quantity defaults to one", `{"description":"Hotel","category":"accommodation","unit_price":"500"}`, "500"},
		{"quantity times unit price", `{"description":"Cab","category":"transportation","quantity":"2","unit_price":"25"}`, "50"},
		{"explicit total wins", `{"description":"Tour","category":"activity","quantity":"2","unit_price":"100","total_price":"150"}`, "150"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(h.Totals, `{"mode":"detailed","items":[`+tt.item+`]}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var body totalsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Totals.Subtotal.String())
			assert.Equal(t, tt.want, body.Totals.TotalAmount.String())
		})
	}
}

func TestWriteError(t *testing.T) {
	log, hook := test.NewNullLogger()
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation with details", &services.ValidationError{Err: services.ErrExceedsOutstanding, Details: "amount 1200.00 exceeds outstanding 1100.00"}, http.StatusUnprocessableEntity, "amount_exceeds_outstanding"},
		{"validation with fields", &services.ValidationError{Err: services.ErrInvalidInput, Fields: validation.Violations{"tax_rate": "out_of_range"}}, http.StatusUnprocessableEntity, "validation_failed"},
		{"not found", &services.NotFoundError{Entity: "invoice", ID: 4}, http.StatusNotFound, "not_found"},
		{"busy editor", billing.ErrBusy, http.StatusConflict, "editor_busy"},
		{"editor rule", billing.ErrReadOnlyItem, http.StatusUnprocessableEntity, "item_read_only"},
		{"upstream", &services.UpstreamError{Op: "invoice.get", Err: errors.New("conn refused")}, http.StatusServiceUnavailable, "upstream_unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, "upstream_unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), log, tt.err)
			assert.Equal(t, tt.status, w.Code)
			var body httpx.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
	assert.Equal(t, "request failed", hook.LastEntry().Message)
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got uint
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if ok {
			got = id
			w.WriteHeader(http.StatusNoContent)
		}
	})

	for path, want := range map[string]int{"/things/12": http.StatusNoContent, "/things/0": http.StatusBadRequest, "/things/-1": http.StatusBadRequest, "/things/x": http.StatusBadRequest} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
	assert.Equal(t, uint(12), got)
}
