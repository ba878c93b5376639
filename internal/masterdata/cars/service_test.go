package cars

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

type memoryRepo struct {
	rows      map[int64]Car
	employees map[int64]string
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows:      make(map[int64]Car),
		employees: map[int64]string{1: "driver", 2: "kirishboy", 3: "driver"},
	}
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Car, int, error) {
	var out []Car
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Car, error) {
	c, ok := m.rows[id]
	if !ok {
		return Car{}, fmt.Errorf("%w: car", shared.ErrNotFound)
	}
	return c, nil
}

func (m *memoryRepo) plateTaken(plate string, except int64) bool {
	for id, c := range m.rows {
		if id != except && c.NumberPlate == plate {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Create(ctx context.Context, c Car) (Car, error) {
	if m.plateTaken(c.NumberPlate, 0) {
		return Car{}, ErrPlateTaken
	}
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c Car) (Car, error) {
	stored, ok := m.rows[c.ID]
	if !ok {
		return Car{}, fmt.Errorf("%w: car", shared.ErrNotFound)
	}
	if m.plateTaken(c.NumberPlate, c.ID) {
		return Car{}, ErrPlateTaken
	}
	c.Balance, c.Left = stored.Balance, stored.Left
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *memoryRepo) EmployeeCategory(ctx context.Context, id int64) (string, error) {
	cat, ok := m.employees[id]
	if !ok {
		return "", fmt.Errorf("%w: employee", shared.ErrNotFound)
	}
	return cat, nil
}

func ptr(v int64) *int64 { return &v }

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "01 A 123 BC", NormalizePlate("  01  a 123\tbc "))
	assert.Equal(t, "", NormalizePlate("   "))
}

func TestCreateCarNormalizesAndChecksUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), nil)

	c, err := svc.Create(ctx, CarInput{Name: "Kamaz", NumberPlate: "01 a 777 aa", DriverID: ptr(1), KirishboyID: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, "01 A 777 AA", c.NumberPlate)
	assert.Equal(t, StatusActive, c.Status)

	_, err = svc.Create(ctx, CarInput{Name: "Other", NumberPlate: "01 A  777 AA"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateCarChecksCrewCategories(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), nil)

	cases := []struct {
		name  string
		in    CarInput
		field string
	}{
		{"driver is kirishboy", CarInput{Name: "A", NumberPlate: "X1", DriverID: ptr(2)}, "driverId"},
		{"kirishboy is driver", CarInput{Name: "A", NumberPlate: "X2", KirishboyID: ptr(3)}, "kirishboyId"},
		{"missing employee", CarInput{Name: "A", NumberPlate: "X3", DriverID: ptr(99)}, "driverId"},
		{"same person", CarInput{Name: "A", NumberPlate: "X4", DriverID: ptr(1), KirishboyID: ptr(1)}, "kirishboyId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			var verr *httpx.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestUpdateCarKeepsLedgerColumns(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	c, err := svc.Create(ctx, CarInput{Name: "Howo", NumberPlate: "10 B 001"})
	require.NoError(t, err)
	stored := repo.rows[c.ID]
	stored.Balance = decimal.NewFromInt(1000)
	stored.Left = decimal.NewFromInt(150)
	repo.rows[c.ID] = stored

	updated, err := svc.Update(ctx, c.ID, CarInput{Name: "Howo 2", NumberPlate: "10 b 001", Status: StatusRepair})
	require.NoError(t, err)
	assert.Equal(t, "1000", updated.Balance.String())
	assert.Equal(t, "150", updated.Left.String())
	assert.Equal(t, StatusRepair, updated.Status)
}
