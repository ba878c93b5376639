package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fleetbook/fleetbook/internal/app"
	"github.com/fleetbook/fleetbook/internal/auth"
	"github.com/fleetbook/fleetbook/internal/backup"
	"github.com/fleetbook/fleetbook/internal/dashboard"
	"github.com/fleetbook/fleetbook/internal/platform/cache"
	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/shared"
	"github.com/fleetbook/fleetbook/jobs"
	"github.com/fleetbook/fleetbook/migrations"
)

// UserCreator provisions accounts.
type UserCreator interface {
	CreateUser(ctx context.Context, in auth.UserInput) (auth.User, error)
}

// JobEnqueuer submits background tasks.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, taskType string) (*asynq.TaskInfo, error)
}

// BackupService exports and restores the whole dataset.
type BackupService interface {
	Export(ctx context.Context) (backup.Bundle, error)
	Import(ctx context.Context, b backup.Bundle) (backup.Stats, error)
}

// Deps resolves the services a command needs. Connections are opened on
// first use so --help works without a database.
type Deps interface {
	Users(ctx context.Context) (UserCreator, error)
	Jobs(ctx context.Context) (JobEnqueuer, error)
	Backup(ctx context.Context) (BackupService, error)
	Migrate(ctx context.Context) ([]string, error)
}

type liveDeps struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	client *jobs.Client
	redis  *redis.Client
	closed bool
}

func (d *liveDeps) config() (*app.Config, error) {
	if d.cfg != nil {
		return d.cfg, nil
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	d.cfg = cfg
	d.logger = app.NewLogger(cfg)
	return cfg, nil
}

func (d *liveDeps) database(ctx context.Context) (*pgxpool.Pool, error) {
	if d.pool != nil {
		return d.pool, nil
	}
	cfg, err := d.config()
	if err != nil {
		return nil, err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	d.pool = pool
	return pool, nil
}

func (d *liveDeps) Users(ctx context.Context) (UserCreator, error) {
	pool, err := d.database(ctx)
	if err != nil {
		return nil, err
	}
	cfg := d.cfg
	return auth.NewService(auth.NewRepository(pool), auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), nil,
		shared.NewAuditLogger(pool, d.logger)), nil
}

func (d *liveDeps) Jobs(ctx context.Context) (JobEnqueuer, error) {
	if d.client != nil {
		return d.client, nil
	}
	cfg, err := d.config()
	if err != nil {
		return nil, err
	}
	opt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	d.client = jobs.NewClient(opt)
	return d.client, nil
}

func (d *liveDeps) Backup(ctx context.Context) (BackupService, error) {
	pool, err := d.database(ctx)
	if err != nil {
		return nil, err
	}
	var invalidator backup.Invalidator
	if client, err := cache.New(ctx, d.cfg.RedisAddr); err != nil {
		d.logger.Warn("redis unavailable, dashboard cache not invalidated", slog.Any("error", err))
	} else {
		d.redis = client
		invalidator = dashboard.NewCache(client, d.cfg.DashboardCacheTTL)
	}
	return backup.NewService(backup.NewRepository(pool), invalidator, shared.NewAuditLogger(pool, d.logger)), nil
}

func (d *liveDeps) Migrate(ctx context.Context) ([]string, error) {
	pool, err := d.database(ctx)
	if err != nil {
		return nil, err
	}
	return migrations.Up(ctx, pool)
}

func (d *liveDeps) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.client != nil {
		if err := d.client.Close(); err != nil && d.logger != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("close job client", slog.Any("error", err))
		}
	}
}
