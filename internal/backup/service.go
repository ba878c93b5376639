package backup

import (
	"context"
	"time"

	"github.com/fleetbook/fleetbook/internal/billing/invoices"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Invalidator drops cached aggregates after an import.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service exports and imports bundles.
type Service struct {
	repo  Repository
	cache Invalidator
	audit shared.AuditPort
	now   func() time.Time
}

// NewService builds Service. cache and audit may be nil.
func NewService(repo Repository, cache Invalidator, audit shared.AuditPort) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, now: time.Now}
}

// Export returns the current dataset stamped with version and time.
func (s *Service) Export(ctx context.Context) (Bundle, error) {
	b, err := s.repo.Export(ctx)
	if err != nil {
		return Bundle{}, err
	}
	b.Version = BundleVersion
	b.ExportedAt = s.now().UTC()
	return normalize(b), nil
}

// Import validates the bundle and replaces all business data with it. The
// journal is rebuilt so stored balances keep reconciling.
func (s *Service) Import(ctx context.Context, b Bundle) (Stats, error) {
	b = normalize(b)
	if err := b.Validate(); err != nil {
		return Stats{}, err
	}
	now := s.now().UTC()
	err := s.repo.Replace(ctx, Restore{
		Bundle:    b,
		Journal:   b.Journal(now),
		Sequences: b.Sequences(),
		Now:       now,
	})
	if err != nil {
		return Stats{}, err
	}
	st := b.Stats()
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorID(ctx),
			Action:   "backup.import",
			Entity:   "backup",
			EntityID: b.ExportedAt.Format(time.RFC3339),
			Meta: map[string]any{
				"version":  b.Version,
				"invoices": st.Invoices,
				"payments": st.Payments,
			},
		})
	}
	return st, nil
}

// normalize replaces nil slices and numbers invoice lines that arrived
// without ids.
func normalize(b Bundle) Bundle {
	var maxLine int64
	for _, inv := range b.Invoices {
		for _, l := range inv.Items {
			maxLine = max(maxLine, l.ID)
		}
	}
	for i := range b.Invoices {
		if b.Invoices[i].Items == nil {
			b.Invoices[i].Items = []invoices.Line{}
		}
		for j := range b.Invoices[i].Items {
			if b.Invoices[i].Items[j].ID == 0 {
				maxLine++
				b.Invoices[i].Items[j].ID = maxLine
			}
		}
	}
	b.Cars = orEmpty(b.Cars)
	b.Employees = orEmpty(b.Employees)
	b.Items = orEmpty(b.Items)
	b.Customers = orEmpty(b.Customers)
	b.Invoices = orEmpty(b.Invoices)
	b.Payments = orEmpty(b.Payments)
	return b
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
