package customers

import (
	"log/slog"
	"net/http"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Handler exposes customers over JSON.
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
	list, total, err := h.service.List(r.Context(), ListFilter{
		Search:  q.Get("search"),
		Status:  q.Get("status"),
		Debtors: q.Get("debtors") == "true",
		Page:    page,
	})
	if err != nil {
		httpx.Fail(w, h.logger, "list customers failed", err)
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
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, h.logger, "get customer failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CustomerInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(w, h.logger, "create customer failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CustomerInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update customer failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(w, h.logger, "delete customer failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.Statement(r.Context(), id, shared.PageFromRequest(r))
	if err != nil {
		httpx.Fail(w, h.logger, "customer statement failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}
