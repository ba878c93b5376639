package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/fleetbook/internal/auth"
	"github.com/fleetbook/fleetbook/internal/backup"
	"github.com/fleetbook/fleetbook/internal/masterdata/cars"
	"github.com/fleetbook/fleetbook/internal/masterdata/customers"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/jobs"
)

type fakeDeps struct {
	created  []auth.UserInput
	enqueued []string
	bundle   backup.Bundle
	imported *backup.Bundle
	opened   int
}

func (f *fakeDeps) Users(ctx context.Context) (UserCreator, error) {
	f.opened++
	return f, nil
}

func (f *fakeDeps) Jobs(ctx context.Context) (JobEnqueuer, error) {
	f.opened++
	return f, nil
}

func (f *fakeDeps) Backup(ctx context.Context) (BackupService, error) {
	f.opened++
	return f, nil
}

func (f *fakeDeps) Migrate(ctx context.Context) ([]string, error) {
	f.opened++
	if f.opened > 1 {
		return nil, nil
	}
	return []string{"000001_init"}, nil
}

func (f *fakeDeps) CreateUser(ctx context.Context, in auth.UserInput) (auth.User, error) {
	f.created = append(f.created, in)
	return auth.User{ID: int64(len(f.created)), Email: in.Email, Role: in.Role}, nil
}

func (f *fakeDeps) Enqueue(ctx context.Context, taskType string) (*asynq.TaskInfo, error) {
	f.enqueued = append(f.enqueued, taskType)
	return &asynq.TaskInfo{ID: "task-1", Type: taskType, Queue: jobs.QueueDefault}, nil
}

func (f *fakeDeps) Export(ctx context.Context) (backup.Bundle, error) {
	return f.bundle, nil
}

func (f *fakeDeps) Import(ctx context.Context, b backup.Bundle) (backup.Stats, error) {
	f.imported = &b
	return b.Stats(), nil
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(deps)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sample() backup.Bundle {
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return backup.Bundle{
		Version:    backup.BundleVersion,
		ExportedAt: at,
		Cars: []cars.Car{
			{ID: 1, Name: "Truck 1", NumberPlate: "01 A 123 BC", Balance: decimal.NewFromInt(300), Left: decimal.NewFromInt(50), Status: "active", CreatedAt: at, UpdatedAt: at},
		},
		Customers: []customers.Customer{
			{ID: 4, Name: "Acme", Balance: decimal.NewFromInt(20), Status: "active", CreatedAt: at, UpdatedAt: at},
		},
	}
}

func TestUsersCreate(t *testing.T) {
	deps := &fakeDeps{}
	out, err := run(t, deps, "users", "create", "--email", "boss@example.com", "--name", "Boss", "--password", "long-enough", "--role", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin user 1 <boss@example.com>")
	require.Len(t, deps.created, 1)
	assert.Equal(t, "Boss", deps.created[0].Name)
}

func TestUsersCreateValidatesBeforeConnecting(t *testing.T) {
	deps := &fakeDeps{}
	_, err := run(t, deps, "users", "create", "--email", "not-an-email", "--name", "X", "--password", "short")
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Zero(t, deps.opened)
}

func TestJobsTrigger(t *testing.T) {
	deps := &fakeDeps{}
	out, err := run(t, deps, "jobs", "trigger", jobs.TaskLedgerVerify)
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued ledger:verify as task-1 on default")
	assert.Equal(t, []string{jobs.TaskLedgerVerify}, deps.enqueued)

	_, err = run(t, deps, "jobs", "trigger", "mail:send")
	assert.Error(t, err)
	assert.Len(t, deps.enqueued, 1)
}

func TestJobsList(t *testing.T) {
	out, err := run(t, &fakeDeps{}, "jobs", "list")
	require.NoError(t, err)
	for _, task := range jobs.TaskTypes {
		assert.Contains(t, out, task)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	for _, ext := range []string{".xlsx", ".json"} {
		t.Run(ext, func(t *testing.T) {
			deps := &fakeDeps{bundle: sample()}
			path := filepath.Join(t.TempDir(), "fleetbook"+ext)

			out, err := run(t, deps, "backup", "export", "--out", path)
			require.NoError(t, err)
			assert.Contains(t, out, "exported 1 cars, 1 customers")

			_, err = run(t, deps, "backup", "import", "--in", path)
			require.Error(t, err)
			assert.Nil(t, deps.imported)

			out, err = run(t, deps, "backup", "import", "--in", path, "--yes")
			require.NoError(t, err)
			assert.Contains(t, out, "restored 1 cars")
			require.NotNil(t, deps.imported)
			require.Len(t, deps.imported.Cars, 1)
			assert.Equal(t, "01 A 123 BC", deps.imported.Cars[0].NumberPlate)
			assert.True(t, deps.imported.Customers[0].Balance.Equal(decimal.NewFromInt(20)))
		})
	}
}

func TestBackupRejectsUnknownFormat(t *testing.T) {
	deps := &fakeDeps{bundle: sample()}
	_, err := run(t, deps, "backup", "export", "--out", filepath.Join(t.TempDir(), "dump.csv"))
	assert.ErrorContains(t, err, "unsupported backup format")
}

func TestMigrate(t *testing.T) {
	deps := &fakeDeps{}
	out, err := run(t, deps, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 000001_init")

	out, err = run(t, deps, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")
}
