package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetbook/fleetbook/internal/auth"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
	_ "github.com/fleetbook/fleetbook/testing"
)

type stubRepo struct {
	users  map[string]*auth.User
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]*auth.User{}}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) Create(ctx context.Context, user auth.User) (*auth.User, error) {
	if _, ok := s.users[user.Email]; ok {
		return nil, shared.ErrDuplicate
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.Email] = &user
	return &user, nil
}

type harness struct {
	router *chi.Mux
	svc    *auth.Service
	repo   *stubRepo
	redis  *miniredis.Miniredis
}

func newHarness(t *testing.T) harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newStubRepo()
	svc := auth.NewService(repo, auth.NewTokenIssuer("test-secret", time.Hour), auth.NewRevocations(client), nil)
	_, err := svc.CreateUser(context.Background(), auth.UserInput{Email: "Admin@Example.com", Name: "Admin", Password: "correct horse", Role: auth.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.CreateUser(context.Background(), auth.UserInput{Email: "staff@example.com", Name: "Staff", Password: "battery staple", Role: auth.RoleStaff})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := auth.NewHandler(logger, svc, httpx.NewValidator())
	r := chi.NewRouter()
	h.MountRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(svc, logger), auth.RequireRole(auth.RoleAdmin))
		h.MountAdminRoutes(r)
	})
	return harness{router: r, svc: svc, repo: repo, redis: mr}
}

func (h harness) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h harness) login(t *testing.T, email, password string) auth.Session {
	t.Helper()
	rec := h.do(http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess
}

func TestCreateUserHashesPassword(t *testing.T) {
	h := newHarness(t)
	u := h.repo.users["admin@example.com"]
	require.NotNil(t, u)
	assert.NotEqual(t, "correct horse", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))
}

func TestLoginIssuesTokenAndMeReturnsUser(t *testing.T) {
	h := newHarness(t)
	sess := h.login(t, "admin@example.com", "correct horse")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, auth.RoleAdmin, sess.User.Role)
	assert.NotContains(t, sess.Token, "correct horse")

	rec := h.do(http.MethodGet, "/auth/me", sess.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"admin@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/auth/login", "", `{"email":"admin@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/auth/login", "", `{"email":"nobody@example.com","password":"whatever1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h.repo.users["staff@example.com"].IsActive = false
	rec = h.do(http.MethodPost, "/auth/login", "", `{"email":"staff@example.com","password":"battery staple"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/auth/login", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMissingOrForgedTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	other := auth.NewTokenIssuer("another-secret", time.Hour)
	forged, _, err := other.Issue(auth.User{ID: 1, Role: auth.RoleAdmin})
	require.NoError(t, err)
	rec = h.do(http.MethodGet, "/auth/me", forged, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t)
	short := auth.NewTokenIssuer("test-secret", -time.Minute)
	expired, _, err := short.Issue(auth.User{ID: 1, Role: auth.RoleAdmin})
	require.NoError(t, err)

	rec := h.do(http.MethodGet, "/auth/me", expired, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	sess := h.login(t, "staff@example.com", "battery staple")

	rec := h.do(http.MethodPost, "/auth/logout", sess.Token, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, h.redis.Keys(), 1)

	rec = h.do(http.MethodGet, "/auth/me", sess.Token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newHarness(t)
	body := `{"email":"new@example.com","name":"New","password":"longenough","role":"staff"}`

	staff := h.login(t, "staff@example.com", "battery staple")
	rec := h.do(http.MethodPost, "/users", staff.Token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := h.login(t, "admin@example.com", "correct horse")
	rec = h.do(http.MethodPost, "/users", admin.Token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/users", admin.Token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
