package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/fleetbook/fleetbook/internal/jobs"
	"github.com/fleetbook/fleetbook/internal/ledger"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type staticSnapshot struct {
	balances, sums map[ledger.Account]decimal.Decimal
	err            error
}

func (s staticSnapshot) Snapshot(ctx context.Context) (map[ledger.Account]decimal.Decimal, map[ledger.Account]decimal.Decimal, error) {
	return s.balances, s.sums, s.err
}

func TestLedgerVerifyReportsDrift(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewLedgerVerifyJob(staticSnapshot{
		balances: map[ledger.Account]decimal.Decimal{
			ledger.CarBalance(1):      decimal.NewFromInt(300),
			ledger.CustomerBalance(2): decimal.NewFromInt(40),
		},
		sums: map[ledger.Account]decimal.Decimal{
			ledger.CarBalance(1):      decimal.NewFromInt(300),
			ledger.CustomerBalance(2): decimal.NewFromInt(25),
		},
	}, discard, metrics)

	drifts, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, ledger.CustomerBalance(2), drifts[0].Account)
	assert.Equal(t, "15", drifts[0].Diff.String())
}

func TestLedgerVerifyMemoryStoreStaysBalanced(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.Open(ledger.CarBalance(1), decimal.Zero)
	err := store.Atomic(context.Background(), func(ctx context.Context) error {
		_, err := ledger.Post(ctx, store, ledger.Source{Kind: ledger.SourceInvoice, ID: 1},
			[]ledger.Effect{{Account: ledger.CarBalance(1), Amount: decimal.NewFromInt(80)}}, "test", time.Now())
		return err
	})
	require.NoError(t, err)

	job := NewLedgerVerifyJob(store, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskLedgerVerify, nil)))
	drifts, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestLedgerVerifyPropagatesSnapshotError(t *testing.T) {
	job := NewLedgerVerifyJob(staticSnapshot{err: errors.New("db down")}, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	assert.EqualError(t, job.Handle(context.Background(), asynq.NewTask(TaskLedgerVerify, nil)), "db down")
}

type warmer struct{ calls int }

func (w *warmer) Warm(ctx context.Context) error {
	w.calls++
	return nil
}

func TestDashboardWarmupCallsWarm(t *testing.T) {
	w := &warmer{}
	job := NewDashboardWarmupJob(w, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)))
	assert.Equal(t, 1, w.calls)

	var unset *DashboardWarmupJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)))
}

type cleaner struct{ olderThan time.Duration }

func (c *cleaner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	c.olderThan = olderThan
	return 3, nil
}

func TestIdempotencyCleanupRetention(t *testing.T) {
	c := &cleaner{}
	job := NewIdempotencyCleanupJob(c, 48*time.Hour, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewTask(TaskIdempotencyCleanup)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, c.olderThan)

	override, err := NewCleanupTask(CleanupPayload{Retention: time.Hour})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), override))
	assert.Equal(t, time.Hour, c.olderThan)

	err = job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewTaskRejectsUnknownType(t *testing.T) {
	for _, taskType := range TaskTypes {
		task, err := NewTask(taskType)
		require.NoError(t, err)
		assert.Equal(t, taskType, task.Type())
	}
	_, err := NewTask("mail:send")
	assert.Error(t, err)
}

func TestDefaultCronCoversEveryTask(t *testing.T) {
	cron, err := DefaultCron()
	require.NoError(t, err)
	require.Len(t, cron, len(TaskTypes))
	for i, entry := range cron {
		assert.Equal(t, TaskTypes[i], entry.Task.Type())
		assert.NotEmpty(t, entry.Spec)
	}
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "queue not created yet", inspector: fakeInspector{err: asynq.ErrQueueNotFound}, status: http.StatusOK},
		{name: "redis down", inspector: fakeInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, discard).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}

func TestRedisOptParsesURL(t *testing.T) {
	opt, err := RedisOpt("redis://:pw@cache.internal:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)

	opt, err = RedisOpt("127.0.0.1:6379")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
}
