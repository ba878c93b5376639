package invoices

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// IdempotencyPort guards creation against replayed requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Invalidator is told when balances changed so derived caches can be dropped.
type Invalidator interface {
	Bump(ctx context.Context) error
}

const idempotencyModule = "invoices"

// Service coordinates invoice writes and their ledger postings.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditPort
	idempotency IdempotencyPort
	cache       Invalidator
	now         func() time.Time
}

// NewService builds Service. audit, idem and cache may be nil.
func NewService(repo RepositoryPort, audit shared.AuditPort, idem IdempotencyPort, cache Invalidator) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, cache: cache, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	return s.repo.List(ctx, filter)
}

// NextNumber previews the number the next invoice will receive.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	n, err := s.repo.PeekSequence(ctx, ledger.InvoiceSequence.Name)
	if err != nil {
		return "", err
	}
	return ledger.InvoiceSequence.Format(n + 1), nil
}

// Create stores the invoice under a fresh number and distributes its totals
// to the car and credit customers in the same transaction.
func (s *Service) Create(ctx context.Context, in InvoiceInput, idempotencyKey string) (Invoice, error) {
	inv, err := build(in)
	if err != nil {
		return Invoice{}, err
	}
	inv.CreatedBy = shared.ActorID(ctx)

	insertedKey := false
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return Invoice{}, err
		}
		insertedKey = true
	}

	var created Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.NextSequence(ctx, ledger.InvoiceSequence.Name)
		if err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}
		inv.InvoiceNo = ledger.InvoiceSequence.Format(n)
		saved, err := tx.Insert(ctx, inv)
		if err != nil {
			return err
		}
		if _, err := ledger.Post(ctx, tx, source(saved.ID), ledger.InvoiceEffects(Facts(saved)), saved.InvoiceNo, s.now()); err != nil {
			return err
		}
		created = saved
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idempotencyKey, idempotencyModule)
		}
		return Invoice{}, err
	}
	s.changed(ctx, "invoice.create", created)
	return created, nil
}

// Update replaces the car, date, notes and lines of an invoice and moves the
// ledger from what the invoice had applied to what it now implies.
func (s *Service) Update(ctx context.Context, id int64, in InvoiceInput) (Invoice, error) {
	next, err := build(in)
	if err != nil {
		return Invoice{}, err
	}

	var updated Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next.ID = current.ID
		next.InvoiceNo = current.InvoiceNo
		next.CreatedBy = current.CreatedBy
		next.CreatedAt = current.CreatedAt
		saved, err := tx.Update(ctx, next)
		if err != nil {
			return err
		}
		if _, err := ledger.Post(ctx, tx, source(saved.ID), ledger.InvoiceEffects(Facts(saved)), saved.InvoiceNo+" updated", s.now()); err != nil {
			return err
		}
		updated = saved
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.changed(ctx, "invoice.update", updated)
	return updated, nil
}

// Delete reverses everything the invoice applied and removes it. Journal
// entries stay as history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var deleted Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := ledger.Reverse(ctx, tx, source(id), current.InvoiceNo+" deleted", s.now()); err != nil {
			return err
		}
		deleted = current
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.changed(ctx, "invoice.delete", deleted)
	return nil
}

func source(id int64) ledger.Source {
	return ledger.Source{Kind: ledger.SourceInvoice, ID: id}
}

func (s *Service) changed(ctx context.Context, action string, inv Invoice) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(inv.ID, 10),
		Meta: map[string]any{
			"invoice_no": inv.InvoiceNo,
			"car_id":     inv.CarID,
			"total":      inv.Total.String(),
			"total_left": inv.TotalLeft.String(),
		},
	})
}
