package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// loadTimeout bounds a coalesced load, which runs detached from any one caller.
const loadTimeout = 30 * time.Second

// Service assembles the dashboard summary behind the versioned cache.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Normalize fills an empty period with the current calendar month and
// rejects inverted ranges.
func (s *Service) Normalize(f Filter) (Filter, error) {
	now := s.now().UTC()
	if f.From.IsZero() {
		f.From = shared.NewDate(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	}
	if f.To.IsZero() {
		first := time.Date(f.From.Year(), f.From.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
		f.To = shared.NewDate(first.AddDate(0, 1, -1))
	}
	if f.To.Before(f.From.Time) {
		return Filter{}, fmt.Errorf("%w: to must not be before from", shared.ErrValidation)
	}
	return f, nil
}

// Summary returns the dashboard payload for the period.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	f, err := s.Normalize(f)
	if err != nil {
		return Summary{}, err
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary", f.From.String(), f.To.String())
	if err != nil {
		return Summary{}, err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		var out Summary
		err := s.cache.FetchJSON(lctx, key, &out, func(ctx context.Context) (any, error) {
			return s.load(ctx, f)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Warm populates the cache for the current month.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Summary(ctx, Filter{})
	return err
}

func (s *Service) load(ctx context.Context, f Filter) (Summary, error) {
	out := Summary{Filter: f}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Counts, err = s.repo.Counts(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Totals, err = s.repo.Totals(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Period, err = s.repo.PeriodFigures(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		out.TopDebtors, err = s.repo.TopDebtors(gctx, topDebtorLimit)
		return err
	})
	g.Go(func() (err error) {
		out.Payouts, err = s.repo.PayoutsByMonth(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if out.TopDebtors == nil {
		out.TopDebtors = []Debtor{}
	}
	if out.Payouts == nil {
		out.Payouts = []MonthAmount{}
	}
	return out, nil
}
