package invoices

import (
	"log/slog"
	"net/http"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Handler exposes invoices over JSON.
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
		CarID:      httpx.Int64Query(r, "carId"),
		CustomerID: httpx.Int64Query(r, "customerId"),
		From:       from,
		To:         to,
		Search:     q.Get("search"),
		Page:       page,
	})
	if err != nil {
		httpx.Fail(w, h.logger, "list invoices failed", err)
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
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, h.logger, "get invoice failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.service.NextNumber(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "next invoice number failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"invoiceNo": number})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in InvoiceInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Create(r.Context(), in, r.Header.Get("Idempotency-Key"))
	if err != nil {
		httpx.Fail(w, h.logger, "create invoice failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in InvoiceInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update invoice failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(w, h.logger, "delete invoice failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
