package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Handler serves the dashboard summary.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
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
	summary, err := h.service.Summary(r.Context(), Filter{From: from, To: to})
	if err != nil {
		httpx.Fail(w, h.logger, "dashboard summary failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
