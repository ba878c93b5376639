package employees

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fleetbook/fleetbook/internal/shared"
)

type memoryRepo struct {
	rows     map[int64]Employee
	assigned map[int64]bool
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]Employee), assigned: make(map[int64]bool)}
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Employee, int, error) {
	var out []Employee
	for _, e := range m.rows {
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Employee, error) {
	e, ok := m.rows[id]
	if !ok {
		return Employee{}, fmt.Errorf("%w: employee", shared.ErrNotFound)
	}
	return e, nil
}

func (m *memoryRepo) Create(ctx context.Context, e Employee) (Employee, error) {
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.rows[e.ID] = e
	return e, nil
}

func (m *memoryRepo) Update(ctx context.Context, e Employee) (Employee, error) {
	if _, ok := m.rows[e.ID]; !ok {
		return Employee{}, fmt.Errorf("%w: employee", shared.ErrNotFound)
	}
	e.UpdatedAt = time.Now()
	m.rows[e.ID] = e
	return e, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("%w: employee", shared.ErrNotFound)
	}
	if m.assigned[id] {
		return ErrInUse
	}
	delete(m.rows, id)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}
