package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/collab-service/internal/domain"
)

// SubjectParam is the route parameter that names the subject a request acts for.
const SubjectParam = "user_id"

// SubjectStore loads the subject a token claims to belong to.
type SubjectStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Request is the part of an HTTP request Authorize reads. *fiber.Ctx satisfies it.
type Request interface {
	Params(key string, defaultValue ...string) string
	Get(key string, defaultValue ...string) string
}

// Options narrows which subjects may pass.
type Options struct {
	RequireAdmin bool
	RequireGuest bool
}

// AuthContext is handed to a handler once a request is authorized.
type AuthContext struct {
	Claims    Claims
	Valid     bool
	User      *domain.User
	ExpiresAt time.Time
}

// SubjectID returns the subject id recovered from the verified claims. Handlers
// that act on "the caller" use this rather than the route parameter.
func (a *AuthContext) SubjectID() string {
	if a == nil {
		return ""
	}
	return a.Claims.Subject()
}

// Authorizer decides allow/deny for a request.
type Authorizer struct {
	tokens *TokenManager
	users  SubjectStore
	logger *zap.Logger
}

// NewAuthorizer wires the token manager and the subject store.
func NewAuthorizer(tokens *TokenManager, users SubjectStore, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{tokens: tokens, users: users, logger: logger}
}

// Tokens exposes the token manager used for verification.
func (a *Authorizer) Tokens() *TokenManager {
	return a.tokens
}

// Authorize walks subject id, subject lookup, role, bearer credential and token
// verification in that order. Any failed step denies; the reason is only logged.
func (a *Authorizer) Authorize(ctx context.Context, req Request, opts Options) (*AuthContext, bool) {
	subjectID := req.Params(SubjectParam)
	if subjectID == "" {
		return a.deny("missing subject id", "")
	}

	user, err := a.users.GetByID(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			a.logger.Warn("subject lookup failed", zap.String("user_id", subjectID), zap.Error(err))
		}
		return a.deny("subject not found", subjectID)
	}
	if user == nil {
		return a.deny("subject not found", subjectID)
	}

	if opts.RequireAdmin && user.Role != domain.RoleAdmin {
		return a.deny("admin role required", subjectID)
	}
	if opts.RequireGuest && user.Role != domain.RoleGuest {
		return a.deny("guest role required", subjectID)
	}

	header := req.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, BearerPrefix) {
		return a.deny("missing bearer credential", subjectID)
	}

	// Verify strips the prefix itself, exactly once.
	verified, err := a.tokens.Verify(header, user.SigningSecret)
	if err != nil {
		a.logger.Debug("token rejected", zap.String("user_id", subjectID), zap.Error(err))
		return nil, false
	}

	return &AuthContext{
		Claims:    verified.Claims,
		Valid:     verified.Valid,
		User:      user,
		ExpiresAt: verified.ExpiresAt,
	}, true
}

func (a *Authorizer) deny(reason, subjectID string) (*AuthContext, bool) {
	a.logger.Debug("authorization denied", zap.String("reason", reason), zap.String("user_id", subjectID))
	return nil, false
}
