package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	audithttp "github.com/fleetbook/fleetbook/internal/audit/http"
	"github.com/fleetbook/fleetbook/internal/auth"
	"github.com/fleetbook/fleetbook/internal/backup"
	"github.com/fleetbook/fleetbook/internal/billing/invoices"
	"github.com/fleetbook/fleetbook/internal/billing/payments"
	"github.com/fleetbook/fleetbook/internal/dashboard"
	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/masterdata/cars"
	"github.com/fleetbook/fleetbook/internal/masterdata/customers"
	"github.com/fleetbook/fleetbook/internal/masterdata/employees"
	"github.com/fleetbook/fleetbook/internal/masterdata/items"
	"github.com/fleetbook/fleetbook/internal/observability"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/jobs"
)

func init() {
	// Amounts leave the API as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	AuthService *auth.Service
	AuthHandler *auth.Handler

	CarsHandler      *cars.Handler
	EmployeesHandler *employees.Handler
	ItemsHandler     *items.Handler
	CustomersHandler *customers.Handler
	InvoicesHandler  *invoices.Handler
	PaymentsHandler  *payments.Handler
	DashboardHandler *dashboard.Handler
	LedgerHandler    *ledger.Handler
	BackupHandler    *backup.Handler
	AuditHandler     *audithttp.Handler
	JobHandler       *jobs.Handler

	// Readiness checks keyed by dependency name.
	Readiness map[string]Pinger
}

// NewRouter constructs the chi.Router with fleetbook defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.AuthService == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(params.AuthService, params.Logger))

		if params.CarsHandler != nil {
			params.CarsHandler.MountRoutes(r)
		}
		if params.EmployeesHandler != nil {
			params.EmployeesHandler.MountRoutes(r)
		}
		if params.ItemsHandler != nil {
			params.ItemsHandler.MountRoutes(r)
		}
		if params.CustomersHandler != nil {
			params.CustomersHandler.MountRoutes(r)
		}
		if params.InvoicesHandler != nil {
			params.InvoicesHandler.MountRoutes(r)
		}
		if params.PaymentsHandler != nil {
			params.PaymentsHandler.MountRoutes(r)
		}
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			params.JobHandler.MountRoutes(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			if params.AuthHandler != nil {
				params.AuthHandler.MountAdminRoutes(r)
			}
			if params.BackupHandler != nil {
				params.BackupHandler.MountRoutes(r)
			}
			params.AuditHandler.MountRoutes(r)
		})
	})

	return r
}

func readiness(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		httpx.JSON(w, status, map[string]any{"checks": report})
	}
}
