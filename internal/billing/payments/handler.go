package payments

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Handler exposes payments over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, validator *httpx.Validator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	q := r.URL.Query()
	from, err := shared.ParseDate(q.Get("from"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := shared.ParseDate(q.Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, total, err := h.service.List(r.Context(), ListFilter{
		Type:         ledger.PaymentType(q.Get("type")),
		CustomerID:   httpx.Int64Query(r, "customerId"),
		CarID:        httpx.Int64Query(r, "carId"),
		AccountMonth: q.Get("accountMonth"),
		From:         from,
		To:           to,
		Page:         page,
	})
	if err != nil {
		httpx.Fail(w, h.logger, "list payments failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewListResult(list, total, page))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, h.logger, "get payment failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.service.NextNumber(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "next payment number failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"paymentNo": number})
}

type createFunc func(ctx context.Context, in PaymentInput, idempotencyKey string) (Payment, error)

func (h *Handler) create(fn createFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in PaymentInput
		if err := h.validator.Decode(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		p, err := fn(r.Context(), in, r.Header.Get("Idempotency-Key"))
		if err != nil {
			httpx.Fail(w, h.logger, "create payment failed", err)
			return
		}
		httpx.JSON(w, http.StatusCreated, p)
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update payment failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(w, h.logger, "delete payment failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
