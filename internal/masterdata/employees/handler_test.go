package employees

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

func newTestRouter() (*chi.Mux, *memoryRepo, *recordingAudit) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo, audit), httpx.NewValidator())
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r, repo, audit
}

func TestCreateEmployee(t *testing.T) {
	r, _, audit := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/employees",
		strings.NewReader(`{"name":"  Rustam  ","phone":"+998 90 000","category":"driver","balance":"12.50"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got Employee
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Rustam", got.Name)
	assert.Equal(t, CategoryDriver, got.Category)
	assert.Equal(t, StatusActive, got.Status)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "employee.create", audit.logs[0].Action)
}

func TestCreateEmployeeRejectsUnknownCategory(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader(`{"name":"A","category":"cook"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Errors, "category")
}

func TestUpdateEmployeeBalanceIsEditable(t *testing.T) {
	r, repo, _ := newTestRouter()
	e, err := repo.Create(context.Background(), Employee{Name: "B", Category: CategoryKirishboy, Status: StatusActive})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/employees/1",
		strings.NewReader(`{"name":"B","category":"kirishboy","balance":300,"status":"inactive"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := repo.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "300", stored.Balance.String())
	assert.Equal(t, StatusInactive, stored.Status)
}

func TestDeleteAssignedEmployeeConflicts(t *testing.T) {
	r, repo, _ := newTestRouter()
	e, err := repo.Create(context.Background(), Employee{Name: "C", Category: CategoryDriver})
	require.NoError(t, err)
	repo.assigned[e.ID] = true

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/employees/1", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	repo.assigned[e.ID] = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/employees/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/employees/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEmployeesFiltersByCategory(t *testing.T) {
	r, repo, _ := newTestRouter()
	ctx := context.Background()
	_, _ = repo.Create(ctx, Employee{Name: "D1", Category: CategoryDriver})
	_, _ = repo.Create(ctx, Employee{Name: "K1", Category: CategoryKirishboy})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/employees?category=kirishboy", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got shared.ListResult[Employee]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Data, 1)
	assert.Equal(t, "K1", got.Data[0].Name)
	assert.Equal(t, 50, got.Limit)
}
