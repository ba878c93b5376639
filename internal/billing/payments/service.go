package payments

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
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

const idempotencyModule = "payments"

// Service coordinates payment writes and their ledger postings.
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

func (s *Service) Get(ctx context.Context, id int64) (Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	return s.repo.List(ctx, filter)
}

// NextNumber previews the number the next payment will receive.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	n, err := s.repo.PeekSequence(ctx, ledger.PaymentSequence.Name)
	if err != nil {
		return "", err
	}
	return ledger.PaymentSequence.Format(n + 1), nil
}

// Receive records money received from a customer and lowers what the customer owes.
func (s *Service) Receive(ctx context.Context, in PaymentInput, idempotencyKey string) (Payment, error) {
	in.Type = ledger.PaymentReceive
	return s.Create(ctx, in, idempotencyKey)
}

// PayOut records money paid against a car or to a customer.
func (s *Service) PayOut(ctx context.Context, in PaymentInput, idempotencyKey string) (Payment, error) {
	in.Type = ledger.PaymentOut
	return s.Create(ctx, in, idempotencyKey)
}

// Create stores the payment under a fresh number and posts its counterpart
// movement in the same transaction.
func (s *Service) Create(ctx context.Context, in PaymentInput, idempotencyKey string) (Payment, error) {
	p, err := build(in)
	if err != nil {
		return Payment{}, err
	}
	p.CreatedBy = shared.ActorID(ctx)

	insertedKey := false
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return Payment{}, err
		}
		insertedKey = true
	}

	var created Payment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.NextSequence(ctx, ledger.PaymentSequence.Name)
		if err != nil {
			return fmt.Errorf("next payment number: %w", err)
		}
		p.PaymentNo = ledger.PaymentSequence.Format(n)
		saved, err := tx.Insert(ctx, p)
		if err != nil {
			return err
		}
		if _, err := ledger.Post(ctx, tx, source(saved.ID), ledger.PaymentEffects(Facts(saved)), saved.PaymentNo, s.now()); err != nil {
			return err
		}
		created = saved
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idempotencyKey, idempotencyModule)
		}
		return Payment{}, err
	}
	s.changed(ctx, "payment.create", created)
	return created, nil
}

// Update changes amount and descriptive fields. Only the difference between
// the new amount and what the payment had applied is posted.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Payment, error) {
	fields := map[string]string{}
	var probe Payment
	applyDetails(&probe, in, fields)
	if len(fields) > 0 {
		return Payment{}, &httpx.ValidationError{Fields: fields}
	}

	var updated Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		applyDetails(&current, in, map[string]string{})
		saved, err := tx.Update(ctx, current)
		if err != nil {
			return err
		}
		if _, err := ledger.Post(ctx, tx, source(saved.ID), ledger.PaymentEffects(Facts(saved)), saved.PaymentNo+" updated", s.now()); err != nil {
			return err
		}
		updated = saved
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	s.changed(ctx, "payment.update", updated)
	return updated, nil
}

// Delete reverses the movement the payment applied, in the direction its type
// implies, and removes it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var deleted Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := ledger.Reverse(ctx, tx, source(id), current.PaymentNo+" deleted", s.now()); err != nil {
			return err
		}
		deleted = current
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.changed(ctx, "payment.delete", deleted)
	return nil
}

func source(id int64) ledger.Source {
	return ledger.Source{Kind: ledger.SourcePayment, ID: id}
}

func (s *Service) changed(ctx context.Context, action string, p Payment) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"payment_no": p.PaymentNo,
		"type":       p.Type,
		"amount":     p.Amount.String(),
	}
	if p.CustomerID != nil {
		meta["customer_id"] = *p.CustomerID
	}
	if p.CarID != nil {
		meta["car_id"] = *p.CarID
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "payment",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta:     meta,
	})
}
