package payments

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

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
)

func TestTypeSpecificEndpoints(t *testing.T) {
	svc, repo := newTestService()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, httpx.NewValidator())
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/receive",
		strings.NewReader(`{"customerId":5,"amount":"200","paymentDate":"2024-06-15","type":"payment_out"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, ledger.PaymentReceive, p.Type, "endpoint decides the type")
	assert.Equal(t, "300", repo.store.Balance(ledger.CustomerBalance(5)).String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/payment-out",
		strings.NewReader(`{"carId":1,"amount":12.5,"paymentDate":"2024-06-15","accountMonth":"2024-05"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "PYN-0002", p.PaymentNo)
	assert.Equal(t, "2024-05", p.AccountMonth)
	assert.Equal(t, "112.5", repo.store.Balance(ledger.CarLeft(1)).String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/payment-out",
		strings.NewReader(`{"carId":1,"amount":5,"paymentDate":"2024-06-15","accountMonth":"May"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/next-number", nil))
	assert.JSONEq(t, `{"paymentNo":"PYN-0003"}`, rec.Body.String())
}
