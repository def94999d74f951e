package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/collab-service/internal/domain"
	apperrors "github.com/spec-kit/collab-service/pkg/util"
)

type countingRecorder struct {
	allowed, denied int
}

func (r *countingRecorder) RecordAuthorization(_ string, allowed bool) {
	if allowed {
		r.allowed++
		return
	}
	r.denied++
}

func newTestApp(mw *AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
		},
	})
	users := app.Group("/users/:user_id", mw.Handle)
	users.Get("/me", RequireSelf(), func(c *fiber.Ctx) error {
		authCtx, _ := FromContext(c)
		return c.SendString(authCtx.SubjectID())
	})
	users.Get("/admin", RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	app.Get("/strict/:user_id", mw.Require(Options{RequireAdmin: true}), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	authorizer, store, _, token := newAuthorizerFixture(t, domain.RoleMember)
	store.users["u2"] = &domain.User{ID: "u2", Role: domain.RoleMember, SigningSecret: "secretA"}
	recorder := &countingRecorder{}
	app := newTestApp(NewAuthMiddleware(authorizer, recorder))

	t.Run("authorized self", func(t *testing.T) {
		resp := doRequest(t, app, "/users/u1/me", token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := doRequest(t, app, "/users/u1/me", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token for another subject sharing a secret", func(t *testing.T) {
		resp := doRequest(t, app, "/users/u2/me", token)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("role guard", func(t *testing.T) {
		resp := doRequest(t, app, "/users/u1/admin", token)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("require admin option", func(t *testing.T) {
		resp := doRequest(t, app, "/strict/u1", token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	assert.Equal(t, 3, recorder.allowed)
	assert.Equal(t, 2, recorder.denied)
}
