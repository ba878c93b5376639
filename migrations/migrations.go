// Package migrations embeds the PostgreSQL schema and applies it with
// golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed *.sql
var files embed.FS

// Versions lists up migrations by version, e.g. "000001_init".
func Versions() ([]string, error) {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(names))
	for _, name := range names {
		versions = append(versions, strings.TrimSuffix(name, ".up.sql"))
	}
	slices.Sort(versions)
	return versions, nil
}

// VersionNumber returns the numeric prefix golang-migrate orders by.
func VersionNumber(version string) (uint, error) {
	head, _, _ := strings.Cut(version, "_")
	n, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("migrations: bad version %q: %w", version, err)
	}
	return uint(n), nil
}

// Between returns the versions above from and up to to, in order.
func Between(versions []string, from, to uint) ([]string, error) {
	var out []string
	for _, v := range versions {
		n, err := VersionNumber(v)
		if err != nil {
			return nil, err
		}
		if n > from && n <= to {
			out = append(out, v)
		}
	}
	return out, nil
}

// Up applies every pending migration and returns the versions it ran.
// Versions are tracked in golang-migrate's schema_migrations table.
func Up(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	versions, err := Versions()
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: source: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	driver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations: driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	defer m.Close()

	before, err := current(m)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migrations: up: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	after, err := current(m)
	if err != nil {
		return nil, err
	}
	return Between(versions, before, after)
}

func current(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migrations: version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("migrations: version %d is dirty; fix the schema and force it", v)
	}
	return v, nil
}
