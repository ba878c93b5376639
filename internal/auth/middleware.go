package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims of the request.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(Claims)
	return c, ok
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: bearer token required", shared.ErrUnauthorized)
	}
	return strings.TrimSpace(token), nil
}

// Authenticate rejects requests without a valid, unrevoked bearer token and
// stores the caller in the request context.
func Authenticate(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err == nil {
				var claims Claims
				claims, err = service.Verify(r.Context(), token)
				if err == nil {
					uid, _ := claims.UserID()
					ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
					ctx = shared.ContextWithActor(ctx, shared.Actor{ID: uid, Role: claims.Role})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			if !errors.Is(err, shared.ErrUnauthorized) && logger != nil {
				logger.Error("verify bearer token", slog.Any("error", err))
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="fleetbook"`)
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing, invalid or expired token")
		})
	}
}

// RequireRole allows only callers with one of the roles. It must run after
// Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				httpx.RespondError(w, fmt.Errorf("%w: requires role %s", shared.ErrForbidden, strings.Join(roles, " or ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
