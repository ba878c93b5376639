package items

import (
	"context"
	"strconv"
	"strings"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// Service manages the item catalogue.
type Service struct {
	repo  Repository
	audit shared.AuditPort
}

// NewService constructs Service.
func NewService(repo Repository, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in ItemInput) (Item, error) {
	it, err := s.repo.Create(ctx, Item{Name: strings.TrimSpace(in.Name), Price: in.Price})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, "item.create", it)
	return it, nil
}

func (s *Service) Update(ctx context.Context, id int64, in ItemInput) (Item, error) {
	it, err := s.repo.Update(ctx, Item{ID: id, Name: strings.TrimSpace(in.Name), Price: in.Price})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, "item.update", it)
	return it, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "item.delete", Item{ID: id})
	return nil
}

func (s *Service) record(ctx context.Context, action string, it Item) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "item",
		EntityID: strconv.FormatInt(it.ID, 10),
		Meta:     map[string]any{"name": it.Name, "price": it.Price.String()},
	})
}
