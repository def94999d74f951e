package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/collab-service/internal/auth"
	"github.com/spec-kit/collab-service/internal/config"
	"github.com/spec-kit/collab-service/internal/domain"
	"github.com/spec-kit/collab-service/internal/events"
	"github.com/spec-kit/collab-service/internal/repository"
	apperrors "github.com/spec-kit/collab-service/pkg/util"
)

const (
	minNameLength     = 3
	minPasswordLength = 6
)

var errInvalidCredentials = apperrors.NewUnauthorized("invalid email or password")

// RegisterInput carries the fields accepted at account creation.
type RegisterInput struct {
	Email             string
	FullName          string
	Username          string
	Password          string
	Role              domain.Role
	Timezone          string
	Language          string
	GroupID           *string
	ProfilePictureURL *string
}

// AuthService coordinates registration, login and credential changes.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	allowAdmin bool
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.TokenDurationSeconds),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		allowAdmin: cfg.Auth.AllowAdminSignup,
	}
}

// Register creates an account and returns a first session token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, time.Time, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	if in.Role == "" {
		in.Role = domain.RoleMember
	}
	if err := validateRegistration(in); err != nil {
		return nil, "", time.Time{}, err
	}
	if in.Role == domain.RoleAdmin && !s.allowAdmin {
		return nil, "", time.Time{}, apperrors.NewValidationError("invalid registration", map[string]any{
			"role": "Admin accounts cannot be self-registered.",
		})
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if exists {
		return nil, "", time.Time{}, apperrors.NewConflict(repository.ErrDuplicateUser.Error(), nil)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	secret, err := auth.NewSigningSecret()
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Email:             in.Email,
		FullName:          in.FullName,
		Username:          in.Username,
		PasswordHash:      hash,
		SigningSecret:     secret,
		ProfilePictureURL: in.ProfilePictureURL,
		Status:            domain.UserStatusActive,
		Role:              in.Role,
		Timezone:          in.Timezone,
		Language:          in.Language,
		GroupID:           in.GroupID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, "", time.Time{}, apperrors.NewConflict(repository.ErrDuplicateUser.Error(), nil)
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.issue(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:    user.Email,
		Username: user.Username,
		Role:     string(user.Role),
	}))
	return user, token, exp, nil
}

// Login authenticates by email and password. Unknown email and wrong password
// produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, errInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errInvalidCredentials
	}
	if !user.Active() {
		return nil, "", time.Time{}, apperrors.NewForbidden("account inactive")
	}

	token, exp, err := s.issue(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{ExpiresAt: exp}))
	return user, token, exp, nil
}

// ChangePassword verifies the current password before storing the new hash.
// The signing secret is left alone, so existing sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 6 characters long", map[string]any{"field": "new_password"})
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("old password is incorrect", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, user.ID, nil))
	return nil
}

// RevokeSessions rotates the user's signing secret, invalidating every token
// issued so far.
func (s *AuthService) RevokeSessions(ctx context.Context, userID string) error {
	secret, err := auth.NewSigningSecret()
	if err != nil {
		return err
	}
	if err := s.users.UpdateSigningSecret(ctx, userID, secret); err != nil {
		return err
	}

	s.publish(ctx, events.NewEvent(events.EventSessionsRevoked, userID, nil))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (string, time.Time, error) {
	claims := auth.Claims{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"username":  user.Username,
	}
	return s.tokenMgr.Issue(claims, user.SigningSecret, 0)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateRegistration(in RegisterInput) error {
	details := map[string]any{}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		details["email"] = "Please provide a valid email."
	}
	if len(in.FullName) < minNameLength {
		details["full_name"] = "Full name must be at least 3 characters long."
	}
	if len(in.Username) < minNameLength {
		details["username"] = "Username must be at least 3 characters long."
	}
	if len(in.Password) < minPasswordLength {
		details["password"] = "Password must be at least 6 characters long."
	}
	if strings.TrimSpace(in.Timezone) == "" {
		details["timezone"] = "Timezone is required."
	}
	if strings.TrimSpace(in.Language) == "" {
		details["language"] = "Language is required."
	}
	if !in.Role.Valid() {
		details["role"] = "Role must be one of admin, member, guest."
	}
	if in.ProfilePictureURL != nil && !validImageURL(*in.ProfilePictureURL) {
		details["profile_picture_url"] = "Please provide a valid image URL."
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration", details)
	}
	return nil
}
