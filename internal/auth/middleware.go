package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/collab-service/pkg/util"
)

const authContextKey = "auth_context"

// DecisionRecorder counts authorization outcomes.
type DecisionRecorder interface {
	RecordAuthorization(route string, allowed bool)
}

// AuthMiddleware applies Authorize to protected routes.
type AuthMiddleware struct {
	authorizer *Authorizer
	recorder   DecisionRecorder
}

// NewAuthMiddleware constructs middleware. recorder may be nil.
func NewAuthMiddleware(authorizer *Authorizer, recorder DecisionRecorder) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer, recorder: recorder}
}

// Require returns a handler that admits only authorized requests. Every denial
// produces the same 401 so clients cannot tell which check failed.
func (m *AuthMiddleware) Require(opts Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, ok := m.authorizer.Authorize(c.UserContext(), c, opts)
		if m.recorder != nil {
			m.recorder.RecordAuthorization(c.Route().Path, ok)
		}
		if !ok {
			return apperrors.NewUnauthorized("unauthorized")
		}
		c.Locals(authContextKey, authCtx)
		return c.Next()
	}
}

// Handle is Require with no role constraint.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	return m.Require(Options{})(c)
}

// FromContext retrieves the authorization context stored by the middleware.
func FromContext(c *fiber.Ctx) (*AuthContext, bool) {
	val := c.Locals(authContextKey)
	if val == nil {
		return nil, false
	}
	authCtx, ok := val.(*AuthContext)
	return authCtx, ok
}
