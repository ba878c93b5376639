package cars

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/fleetbook/fleetbook/internal/masterdata/employees"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Service manages cars.
type Service struct {
	repo  Repository
	audit shared.AuditPort
}

// NewService constructs Service.
func NewService(repo Repository, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// NormalizePlate upper-cases a number plate and collapses its whitespace.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), " "))
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Car, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Car, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CarInput) (Car, error) {
	c, err := s.prepare(ctx, Car{}, in)
	if err != nil {
		return Car{}, err
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Car{}, err
	}
	s.record(ctx, "car.create", created)
	return created, nil
}

// Update changes descriptive fields and crew. Balance and left are kept.
func (s *Service) Update(ctx context.Context, id int64, in CarInput) (Car, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Car{}, err
	}
	c, err := s.prepare(ctx, current, in)
	if err != nil {
		return Car{}, err
	}
	updated, err := s.repo.Update(ctx, c)
	if err != nil {
		return Car{}, err
	}
	s.record(ctx, "car.update", updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "car.delete", Car{ID: id})
	return nil
}

func (s *Service) prepare(ctx context.Context, c Car, in CarInput) (Car, error) {
	c.Name = strings.TrimSpace(in.Name)
	c.NumberPlate = NormalizePlate(in.NumberPlate)
	c.DriverID = positive(in.DriverID)
	c.KirishboyID = positive(in.KirishboyID)
	c.Status = in.Status
	c.Notes = strings.TrimSpace(in.Notes)
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.NumberPlate == "" {
		return Car{}, httpx.Field("numberPlate", "is required")
	}
	if c.DriverID != nil && c.KirishboyID != nil && *c.DriverID == *c.KirishboyID {
		return Car{}, httpx.Field("kirishboyId", "must differ from driverId")
	}
	if err := s.checkCrew(ctx, "driverId", c.DriverID, employees.CategoryDriver); err != nil {
		return Car{}, err
	}
	if err := s.checkCrew(ctx, "kirishboyId", c.KirishboyID, employees.CategoryKirishboy); err != nil {
		return Car{}, err
	}
	return c, nil
}

func (s *Service) checkCrew(ctx context.Context, field string, id *int64, want employees.Category) error {
	if id == nil {
		return nil
	}
	category, err := s.repo.EmployeeCategory(ctx, *id)
	if errors.Is(err, shared.ErrNotFound) {
		return httpx.Field(field, "employee not found")
	}
	if err != nil {
		return err
	}
	if employees.Category(category) != want {
		return httpx.Field(field, "employee must be a "+string(want))
	}
	return nil
}

func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

func (s *Service) record(ctx context.Context, action string, c Car) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "car",
		EntityID: strconv.FormatInt(c.ID, 10),
		Meta:     map[string]any{"numberPlate": c.NumberPlate},
	})
}
