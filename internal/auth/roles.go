package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/collab-service/internal/domain"
)

// RequireSelf ensures the verified claims name the same subject as the route.
// A token minted for one user is never accepted on another user's routes even
// if both happen to share a signing secret.
func RequireSelf() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, ok := FromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if authCtx.SubjectID() != c.Params(SubjectParam) {
			return fiber.NewError(http.StatusForbidden, "token subject mismatch")
		}
		return c.Next()
	}
}

// RequireRole ensures the authorized subject holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		authCtx, ok := FromContext(c)
		if !ok || authCtx.User == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[authCtx.User.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
