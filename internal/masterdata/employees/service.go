package employees

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// Service manages employees.
type Service struct {
	repo  Repository
	audit shared.AuditPort
}

// NewService constructs Service.
func NewService(repo Repository, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Employee, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in EmployeeInput) (Employee, error) {
	e := fromInput(Employee{}, in)
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return Employee{}, fmt.Errorf("create employee: %w", err)
	}
	s.record(ctx, "employee.create", created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, in EmployeeInput) (Employee, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	updated, err := s.repo.Update(ctx, fromInput(current, in))
	if err != nil {
		return Employee{}, fmt.Errorf("update employee: %w", err)
	}
	s.record(ctx, "employee.update", updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "employee.delete", Employee{ID: id})
	return nil
}

func fromInput(e Employee, in EmployeeInput) Employee {
	e.Name = strings.TrimSpace(in.Name)
	e.Phone = strings.TrimSpace(in.Phone)
	e.Category = in.Category
	e.Balance = in.Balance
	e.Status = in.Status
	if e.Status == "" {
		e.Status = StatusActive
	}
	return e
}

func (s *Service) record(ctx context.Context, action string, e Employee) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "employee",
		EntityID: strconv.FormatInt(e.ID, 10),
		Meta:     map[string]any{"name": e.Name, "category": e.Category},
	})
}
