package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// RevocationStore tracks logged-out token ids.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *TokenIssuer
	revoked RevocationStore
	audit   shared.AuditPort
}

// NewService constructs a new Service. audit may be nil.
func NewService(repo Repository, tokens *TokenIssuer, revoked RevocationStore, audit shared.AuditPort) *Service {
	return &Service{repo: repo, tokens: tokens, revoked: revoked, audit: audit}
}

// Login validates email/password credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	token, claims, err := s.tokens.Issue(*user)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, user.ID, "auth.login")
	return Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: *user}, nil
}

// Verify parses a bearer token and rejects revoked ones.
func (s *Service) Verify(ctx context.Context, token string) (Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Claims{}, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, err
	}
	if revoked {
		return Claims{}, fmt.Errorf("%w: token revoked", shared.ErrUnauthorized)
	}
	return claims, nil
}

// Logout revokes the token until it would have expired.
func (s *Service) Logout(ctx context.Context, claims Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	uid, _ := claims.UserID()
	s.record(ctx, uid, "auth.logout")
	return nil
}

// Me returns the account behind the claims.
func (s *Service) Me(ctx context.Context, claims Claims) (User, error) {
	id, err := claims.UserID()
	if err != nil {
		return User{}, fmt.Errorf("%w: malformed subject", shared.ErrUnauthorized)
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, fmt.Errorf("%w: account disabled", shared.ErrUnauthorized)
	}
	return *user, nil
}

// CreateUser hashes the password and stores a new active account.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (User, error) {
	if len(in.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must have at least 8 characters", shared.ErrValidation)
	}
	if in.Role != RoleAdmin && in.Role != RoleStaff {
		return User{}, fmt.Errorf("%w: role must be admin or staff", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		Role:         in.Role,
		IsActive:     true,
	})
	if err != nil {
		return User{}, err
	}
	s.record(ctx, user.ID, "user.create")
	return *user, nil
}

func (s *Service) record(ctx context.Context, userID int64, action string) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorID(ctx)
	if actor == 0 {
		actor = userID
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
	})
}
