package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/collab-service/internal/api/http/handlers"
	"github.com/spec-kit/collab-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Presence       *handlers.PresenceHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	users := app.Group("/api/v1/users")
	users.Post("/", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)

	// Registered ahead of the self group so its middleware does not run twice.
	users.Get("/:user_id/directory",
		cfg.AuthMiddleware.Require(auth.Options{RequireAdmin: true}),
		auth.RequireSelf(),
		cfg.Users.Directory,
	)

	self := users.Group("/:user_id", cfg.AuthMiddleware.Handle, auth.RequireSelf())
	self.Get("/", cfg.Users.Get)
	self.Put("/password", cfg.Users.ChangePassword)
	self.Put("/profile-picture", cfg.Users.UpdateProfilePicture)
	self.Post("/sessions/revoke", cfg.Users.RevokeSessions)

	self.Post("/rooms/:room_id/join", cfg.Presence.Join)
	self.Delete("/rooms/:room_id/peers/:peer_id", cfg.Presence.Leave)
	self.Get("/rooms/:room_id/participants", cfg.Presence.Participants)
}
