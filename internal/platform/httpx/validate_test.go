package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/fleetbook/internal/shared"
)

type lineReq struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Method   string          `json:"paymentMethod" validate:"required,oneof=cash credit"`
}

type invoiceReq struct {
	CarID int64     `json:"carId" validate:"required,gt=0"`
	Items []lineReq `json:"items" validate:"required,min=1,dive"`
}

func TestValidatorReportsJSONFieldPaths(t *testing.T) {
	v := NewValidator()
	err := v.Struct(invoiceReq{Items: []lineReq{{Quantity: decimal.Zero, Method: "barter"}}})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "carId")
	assert.Contains(t, verr.Fields, "items[0].quantity")
	assert.Contains(t, verr.Fields, "items[0].paymentMethod")
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestValidatorAcceptsValidDecimal(t *testing.T) {
	v := NewValidator()
	err := v.Struct(invoiceReq{CarID: 1, Items: []lineReq{{Quantity: decimal.RequireFromString("1.5"), Method: "cash"}}})
	require.NoError(t, err)
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrDuplicate, http.StatusConflict},
		{shared.ErrIdempotencyConflict, http.StatusConflict},
		{shared.ErrValidation, http.StatusBadRequest},
		{Field("amount", "must be positive"), http.StatusUnprocessableEntity},
		{shared.ErrUnauthorized, http.StatusUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}
