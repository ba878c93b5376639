package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/fleetbook/fleetbook/internal/jobs"
	"github.com/fleetbook/fleetbook/internal/ledger"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Snapshotter loads balances and journal sums.
type Snapshotter interface {
	Snapshot(ctx context.Context) (balances, sums map[ledger.Account]decimal.Decimal, err error)
}

// LedgerVerifyJob reports accounts whose balance drifted from the journal.
type LedgerVerifyJob struct {
	Ledger  Snapshotter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerVerifyJob wires dependencies for the verification handler.
func NewLedgerVerifyJob(source Snapshotter, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerVerifyJob {
	return &LedgerVerifyJob{Ledger: source, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle processes TaskLedgerVerify tasks.
func (j *LedgerVerifyJob) Handle(ctx context.Context, _ *asynq.Task) error {
	_, err := j.Run(ctx)
	return err
}

// Run verifies every account once. Drift is logged and counted, never
// corrected.
func (j *LedgerVerifyJob) Run(ctx context.Context) (drifts []ledger.Drift, resultErr error) {
	if j == nil || j.Ledger == nil {
		return nil, errors.New("ledger verify: handler not configured")
	}
	tracker := j.metrics().Track(TaskLedgerVerify)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.clock()
	balances, sums, err := j.Ledger.Snapshot(ctx)
	if err != nil {
		logger.Error("load ledger snapshot", slog.Any("error", err))
		return nil, err
	}
	drifts = ledger.Verify(balances, sums)

	byKind := make(map[string]int)
	for _, d := range drifts {
		byKind[string(d.Account.Kind)]++
		logger.Warn("ledger drift",
			slog.String("account", d.Account.String()),
			slog.String("balance", d.Balance.String()),
			slog.String("journal", d.Journal.String()),
			slog.String("diff", d.Diff.String()))
	}
	j.metrics().ObserveDrift(byKind)
	logger.Info("ledger verified", slog.Int("accounts", len(balances)), slog.Int("drift", len(drifts)),
		slog.Duration("duration", j.clock().Sub(start)))
	return drifts, nil
}

func (j *LedgerVerifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerVerify))
	}
	return slog.Default().With(slog.String("job", TaskLedgerVerify))
}

func (j *LedgerVerifyJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
