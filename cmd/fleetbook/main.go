package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fleetbook/fleetbook/internal/app"
	"github.com/fleetbook/fleetbook/internal/audit"
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
	"github.com/fleetbook/fleetbook/internal/platform/cache"
	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
	"github.com/fleetbook/fleetbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	validator := httpx.NewValidator()
	auditLogger := shared.NewAuditLogger(pool, logger)
	idempotency := shared.NewIdempotencyStore(pool)
	ledgerRepo := ledger.NewRepository(pool)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := dashboardCache.ListenForInvalidation(ctx, redisClient); err != nil {
		logger.Warn("subscribe dashboard invalidation", slog.Any("error", err))
	}
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokens, auth.NewRevocations(redisClient), auditLogger)

	carsService := cars.NewService(cars.NewRepository(pool), auditLogger)
	employeesService := employees.NewService(employees.NewRepository(pool), auditLogger)
	itemsService := items.NewService(items.NewRepository(pool), auditLogger)
	customersService := customers.NewService(customers.NewRepository(pool), ledgerRepo, auditLogger)
	invoicesService := invoices.NewService(invoices.NewRepository(pool), auditLogger, idempotency, dashboardCache)
	paymentsService := payments.NewService(payments.NewRepository(pool), auditLogger, idempotency, dashboardCache)
	backupService := backup.NewService(backup.NewRepository(pool), dashboardCache, auditLogger)

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          observability.NewMetrics(),
		AuthService:      authService,
		AuthHandler:      auth.NewHandler(logger, authService, validator),
		CarsHandler:      cars.NewHandler(logger, carsService, validator),
		EmployeesHandler: employees.NewHandler(logger, employeesService, validator),
		ItemsHandler:     items.NewHandler(logger, itemsService, validator),
		CustomersHandler: customers.NewHandler(logger, customersService, validator),
		InvoicesHandler:  invoices.NewHandler(logger, invoicesService, validator),
		PaymentsHandler:  payments.NewHandler(logger, paymentsService, validator),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		LedgerHandler:    ledger.NewHandler(logger, ledgerRepo),
		BackupHandler:    backup.NewHandler(logger, backupService),
		AuditHandler:     audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Readiness: map[string]app.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
