package cars

import (
	"log/slog"
	"net/http"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Handler exposes cars over JSON.
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
		Search: q.Get("search"),
		Status: q.Get("status"),
		Page:   page,
	})
	if err != nil {
		httpx.Fail(w, h.logger, "list cars failed", err)
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
		httpx.Fail(w, h.logger, "get car failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CarInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(w, h.logger, "create car failed", err)
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
	var in CarInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update car failed", err)
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
		httpx.Fail(w, h.logger, "delete car failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
