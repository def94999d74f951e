package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/collab-service/internal/auth"
	"github.com/spec-kit/collab-service/internal/config"
	"github.com/spec-kit/collab-service/internal/domain"
	"github.com/spec-kit/collab-service/internal/events"
	"github.com/spec-kit/collab-service/internal/presence"
	"github.com/spec-kit/collab-service/internal/repository"
	"github.com/spec-kit/collab-service/pkg/util"
)

type recordingDispatcher struct {
	events.Dispatcher
	published []events.EventType
}

func (d *recordingDispatcher) Publish(ctx context.Context, e events.Event) error {
	d.published = append(d.published, e.Type)
	return d.Dispatcher.Publish(ctx, e)
}

func newAuthService(t *testing.T) (*AuthService, *repository.MemoryUserRepository, *recordingDispatcher) {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	dispatcher := &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(zap.NewNop())}
	cfg := config.Config{Auth: config.AuthConfig{TokenDurationSeconds: 3600, BcryptCost: bcrypt.MinCost}}
	svc := NewAuthService(cfg, AuthDependencies{UserRepo: repo, Dispatcher: dispatcher})
	return svc, repo, dispatcher
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:    "Jane@Example.com ",
		FullName: "Jane Doe",
		Username: "janedoe",
		Password: "hunter22",
		Timezone: "Europe/Berlin",
		Language: "en",
	}
}

func assertDomainError(t *testing.T, err error, status int) *util.DomainError {
	t.Helper()
	var de *util.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %v", err)
	assert.Equal(t, status, de.HTTPStatus)
	return de
}

func TestRegister(t *testing.T) {
	svc, repo, dispatcher := newAuthService(t)
	ctx := context.Background()

	user, token, exp, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, domain.RoleMember, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEmpty(t, user.SigningSecret)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	verified, err := svc.TokenManager().Verify(token, stored.SigningSecret)
	require.NoError(t, err)
	assert.Equal(t, auth.Claims{
		"id":        user.ID,
		"email":     "jane@example.com",
		"full_name": "Jane Doe",
		"username":  "janedoe",
	}, verified.Claims)

	assert.Equal(t, []events.EventType{events.EventUserRegistered}, dispatcher.published)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	_, _, _, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Email = "other@example.com"
	_, _, _, err = svc.Register(ctx, in)
	assertDomainError(t, err, http.StatusConflict)
}

func TestRegisterAdminRole(t *testing.T) {
	svc, _, _ := newAuthService(t)
	in := validInput()
	in.Role = domain.RoleAdmin
	_, _, _, err := svc.Register(context.Background(), in)
	de := assertDomainError(t, err, http.StatusBadRequest)
	assert.Contains(t, de.Details, "role")

	cfg := config.Config{Auth: config.AuthConfig{TokenDurationSeconds: 3600, BcryptCost: bcrypt.MinCost, AllowAdminSignup: true}}
	permissive := NewAuthService(cfg, AuthDependencies{UserRepo: repository.NewMemoryUserRepository()})
	user, _, _, err := permissive.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService(t)
	bad := "ftp://pics/me.png"
	in := RegisterInput{
		Email:             "not-an-email",
		FullName:          "Jo",
		Username:          "jo",
		Password:          "123",
		Role:              "owner",
		ProfilePictureURL: &bad,
	}
	_, _, _, err := svc.Register(context.Background(), in)
	de := assertDomainError(t, err, http.StatusBadRequest)
	for _, field := range []string{"email", "full_name", "username", "password", "timezone", "language", "role", "profile_picture_url"} {
		assert.Contains(t, de.Details, field)
	}
}

func TestLogin(t *testing.T) {
	svc, repo, dispatcher := newAuthService(t)
	ctx := context.Background()
	registered, _, _, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	user, token, _, err := svc.Login(ctx, "JANE@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	_, err = svc.TokenManager().Verify(token, user.SigningSecret)
	assert.NoError(t, err)
	assert.Contains(t, dispatcher.published, events.EventUserLoggedIn)

	_, _, _, wrongPass := svc.Login(ctx, "jane@example.com", "nope-nope")
	_, _, _, unknown := svc.Login(ctx, "ghost@example.com", "hunter22")
	assertDomainError(t, wrongPass, http.StatusUnauthorized)
	assertDomainError(t, unknown, http.StatusUnauthorized)
	assert.Equal(t, wrongPass.Error(), unknown.Error())

	stored, _ := repo.GetByID(ctx, registered.ID)
	stored.Status = domain.UserStatusInactive
	require.NoError(t, repo.Update(ctx, stored))
	_, _, _, err = svc.Login(ctx, "jane@example.com", "hunter22")
	assertDomainError(t, err, http.StatusForbidden)
}

func TestChangePasswordKeepsSessions(t *testing.T) {
	svc, repo, _ := newAuthService(t)
	ctx := context.Background()
	user, token, _, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "wrong-old", "brand-new")
	assertDomainError(t, err, http.StatusBadRequest)

	err = svc.ChangePassword(ctx, user.ID, "hunter22", "short")
	assertDomainError(t, err, http.StatusBadRequest)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "hunter22", "brand-new"))

	stored, _ := repo.GetByID(ctx, user.ID)
	_, err = svc.TokenManager().Verify(token, stored.SigningSecret)
	assert.NoError(t, err, "password change must not invalidate tokens")

	_, _, _, err = svc.Login(ctx, "jane@example.com", "brand-new")
	assert.NoError(t, err)
}

func TestRevokeSessionsInvalidatesTokens(t *testing.T) {
	svc, repo, dispatcher := newAuthService(t)
	ctx := context.Background()
	user, token, _, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSessions(ctx, user.ID))

	stored, _ := repo.GetByID(ctx, user.ID)
	assert.NotEqual(t, user.SigningSecret, stored.SigningSecret)
	_, err = svc.TokenManager().Verify(token, stored.SigningSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
	assert.Contains(t, dispatcher.published, events.EventSessionsRevoked)

	assert.ErrorIs(t, svc.RevokeSessions(ctx, "missing"), pgx.ErrNoRows)
}

func TestUserServiceList(t *testing.T) {
	svc, repo, _ := newAuthService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		in := validInput()
		in.Email = fmt.Sprintf("user%d@example.com", i)
		in.Username = fmt.Sprintf("user%d", i)
		_, _, _, err := svc.Register(ctx, in)
		require.NoError(t, err)
	}

	users := NewUserService(repo)
	page, meta, err := users.List(ctx, util.NewPage(2, 2))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "user2", page[0].Username)
	assert.Equal(t, util.Pagination{TotalRecords: 5, TotalPages: 3, CurrentPage: 2, PerPage: 2}, meta)

	_, err = users.Get(ctx, "nobody")
	assertDomainError(t, err, http.StatusNotFound)
}

func TestUserServiceUpdateProfilePicture(t *testing.T) {
	svc, repo, _ := newAuthService(t)
	ctx := context.Background()
	user, _, _, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	users := NewUserService(repo)
	_, err = users.UpdateProfilePicture(ctx, user.ID, "not a url")
	assertDomainError(t, err, http.StatusBadRequest)

	updated, err := users.UpdateProfilePicture(ctx, user.ID, "https://cdn.example.com/jane.png")
	require.NoError(t, err)
	require.NotNil(t, updated.ProfilePictureURL)
	assert.Equal(t, "https://cdn.example.com/jane.png", *updated.ProfilePictureURL)
}

func TestPresenceService(t *testing.T) {
	dispatcher := &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(zap.NewNop())}
	svc := NewPresenceService(presence.NewMemoryRegistry(), dispatcher, nil)
	ctx := context.Background()
	jane := &domain.User{ID: "u1", Email: "jane@example.com", FullName: "Jane Doe"}
	bob := &domain.User{ID: "u2", Email: "bob@example.com", FullName: "Bob Roe"}

	room, added, err := svc.Join(ctx, jane, "event-1", JoinInput{PeerID: "peer-j"})
	require.NoError(t, err)
	assert.True(t, added)
	require.Len(t, room, 1)
	assert.Equal(t, "Jane Doe", room[0].Name)

	_, added, err = svc.Join(ctx, jane, "event-1", JoinInput{PeerID: "peer-j2"})
	require.NoError(t, err)
	assert.False(t, added, "same email already in room")

	room, _, err = svc.Join(ctx, bob, "event-1", JoinInput{PeerID: "peer-b"})
	require.NoError(t, err)
	assert.Len(t, room, 2)

	err = svc.Leave(ctx, bob.ID, "event-1", "peer-j")
	assertDomainError(t, err, http.StatusForbidden)

	require.NoError(t, svc.Leave(ctx, jane.ID, "event-1", "peer-j"))
	room, err = svc.Participants(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, room, 1)
	assert.Equal(t, "peer-b", room[0].PeerID)

	_, _, err = svc.Join(ctx, jane, "event-1", JoinInput{})
	assertDomainError(t, err, http.StatusBadRequest)

	assert.Equal(t, []events.EventType{events.EventRoomJoined, events.EventRoomJoined, events.EventRoomLeft}, dispatcher.published)
}

type failingDispatcher struct{}

func (failingDispatcher) Publish(context.Context, events.Event) error {
	return errors.New("broker down")
}

func (failingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func TestPresenceServiceLogsPublishFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewPresenceService(presence.NewMemoryRegistry(), failingDispatcher{}, zap.New(core))
	jane := &domain.User{ID: "u1", Email: "jane@example.com", FullName: "Jane Doe"}

	_, added, err := svc.Join(context.Background(), jane, "event-1", JoinInput{PeerID: "peer-j"})
	require.NoError(t, err, "a failed publish does not fail the join")
	assert.True(t, added)

	entries := logs.FilterMessage("publish event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(events.EventRoomJoined), entries[0].ContextMap()["event_type"])
	assert.Equal(t, "broker down", entries[0].ContextMap()["error"])
}
