package invoices

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
)

func newRouter(f fixture) *chi.Mux {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc, httpx.NewValidator())
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

const createBody = `{
  "carId": 1,
  "date": "2024-04-01",
  "items": [
    {"customerId": 10, "description": "sand", "quantity": 2, "price": "150.00", "leftAmount": 0, "paymentMethod": "credit"}
  ]
}`

func TestHandlerCreateAndGet(t *testing.T) {
	f := newFixture()
	r := newRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(createBody))
	req.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, "INV-001", inv.InvoiceNo)
	assert.Equal(t, "300", inv.Total.String())
	assert.Equal(t, "2024-04-01", inv.Date.String())

	req = httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(createBody))
	req.Header.Set("Idempotency-Key", "k1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/next-number", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invoiceNo":"INV-002"}`, rec.Body.String())
}

func TestHandlerRejectsBadLines(t *testing.T) {
	f := newFixture()
	r := newRouter(f)

	body := `{"carId": 1, "date": "2024-04-01", "items": [{"quantity": 0, "price": 5, "paymentMethod": "barter"}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Errors, "items[0].quantity")
	assert.Contains(t, problem.Errors, "items[0].paymentMethod")
}

func TestHandlerMissingInvoice(t *testing.T) {
	r := newRouter(newFixture())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/invoices/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
