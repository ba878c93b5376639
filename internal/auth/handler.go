package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validator *httpx.Validator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator}
}

// MountRoutes registers auth routes. Login is public; the rest need a token.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.service, h.logger))
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
		})
	})
}

// MountAdminRoutes registers account management for admins.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/users", h.handleCreateUser)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Warn("login rejected", slog.String("email", in.Email), slog.String("ip", r.RemoteAddr))
		}
		httpx.Fail(w, h.logger, "login failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	if err := h.service.Logout(r.Context(), claims); err != nil {
		httpx.Fail(w, h.logger, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	user, err := h.service.Me(r.Context(), claims)
	if err != nil {
		httpx.Fail(w, h.logger, "load current user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in UserInput
	if err := h.validator.Decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.CreateUser(r.Context(), in)
	if err != nil {
		httpx.Fail(w, h.logger, "create user failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}
