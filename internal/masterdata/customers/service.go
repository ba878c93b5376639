package customers

import (
	"context"
	"strconv"
	"strings"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// JournalReader lists ledger entries.
type JournalReader interface {
	ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, int, error)
}

// Service manages customers.
type Service struct {
	repo    Repository
	journal JournalReader
	audit   shared.AuditPort
}

// NewService constructs Service.
func NewService(repo Repository, journal JournalReader, audit shared.AuditPort) *Service {
	return &Service{repo: repo, journal: journal, audit: audit}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CustomerInput) (Customer, error) {
	c, err := s.repo.Create(ctx, apply(Customer{}, in))
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, "customer.create", c)
	return c, nil
}

// Update changes descriptive fields. The balance is left as stored.
func (s *Service) Update(ctx context.Context, id int64, in CustomerInput) (Customer, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	c, err := s.repo.Update(ctx, apply(current, in))
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, "customer.update", c)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "customer.delete", Customer{ID: id})
	return nil
}

// Statement returns the customer with the journal of its balance account, newest first.
func (s *Service) Statement(ctx context.Context, id int64, page shared.Page) (Statement, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	acct := ledger.CustomerBalance(id)
	entries, total, err := s.journal.ListEntries(ctx, ledger.EntryFilter{Account: &acct, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return Statement{}, err
	}
	return Statement{Customer: c, Entries: shared.NewListResult(entries, total, page)}, nil
}

func apply(c Customer, in CustomerInput) Customer {
	c.Name = strings.TrimSpace(in.Name)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Notes = strings.TrimSpace(in.Notes)
	c.Status = in.Status
	if c.Status == "" {
		c.Status = StatusActive
	}
	return c
}

func (s *Service) record(ctx context.Context, action string, c Customer) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(c.ID, 10),
		Meta:     map[string]any{"name": c.Name},
	})
}
