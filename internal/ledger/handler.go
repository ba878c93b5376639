package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Reader is the read side of the journal.
type Reader interface {
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error)
	Snapshot(ctx context.Context) (balances, sums map[Account]decimal.Decimal, err error)
}

// Handler exposes the journal over JSON.
type Handler struct {
	logger *slog.Logger
	reader Reader
}

func NewHandler(logger *slog.Logger, reader Reader) *Handler {
	return &Handler{logger: logger, reader: reader}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/entries", h.Entries)
		r.Get("/drift", h.Drift)
	})
}

func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	filter := EntryFilter{Limit: page.Limit, Offset: page.Offset}
	q := r.URL.Query()
	if kind := q.Get("accountKind"); kind != "" {
		acct := Account{Kind: AccountKind(kind), ID: httpx.Int64Query(r, "accountId")}
		if !acct.Kind.Valid() || acct.ID <= 0 {
			httpx.RespondError(w, fmt.Errorf("%w: accountKind and accountId must name an account", shared.ErrValidation))
			return
		}
		filter.Account = &acct
	}
	if kind := q.Get("sourceKind"); kind != "" {
		id, err := strconv.ParseInt(q.Get("sourceId"), 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, fmt.Errorf("%w: sourceId required with sourceKind", shared.ErrValidation))
			return
		}
		filter.Source = &Source{Kind: SourceKind(kind), ID: id}
	}
	entries, total, err := h.reader.ListEntries(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, h.logger, "list ledger entries failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewListResult(entries, total, page))
}

// Drift reports accounts whose stored balance disagrees with the journal.
func (h *Handler) Drift(w http.ResponseWriter, r *http.Request) {
	balances, sums, err := h.reader.Snapshot(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "ledger snapshot failed", err)
		return
	}
	drifts := Verify(balances, sums)
	if drifts == nil {
		drifts = []Drift{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": len(balances), "drift": drifts})
}
