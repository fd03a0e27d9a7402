package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/api/http/handlers"
	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Sync           *handlers.SyncHandler
	Security       *handlers.SecurityHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Auth.Login)

	authed := api.Group("", cfg.AuthMiddleware.Authenticate())

	users := authed.Group("/users")
	users.Get("/", cfg.Users.ListUsers)
	users.Get("/search", cfg.Users.SearchUsers)
	users.Get("/:id", cfg.Users.GetUser)
	users.Post("/", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Users.CreateUser)
	users.Put("/:id", cfg.Users.UpdateUser)
	users.Delete("/:id", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Users.DeleteUser)
	users.Post("/:id/password", cfg.Auth.ChangePassword)

	sync := authed.Group("/sync")
	sync.Get("/check/:id", cfg.Sync.CheckExistence)
	sync.Get("/validate/:id", cfg.Sync.ValidateSync)
	sync.Post("/self", cfg.Sync.SyncSelf)
	sync.Post("/users/:id", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Sync.SyncUser)
	sync.Get("/audit/:id", auth.RequireRole(domain.RoleAdmin), cfg.Sync.AuditLog)

	securityGroup := authed.Group("/security", auth.RequireRole(domain.RoleAdmin))
	securityGroup.Get("/metrics", cfg.Security.Metrics)
	securityGroup.Get("/events", cfg.Security.Events)
}
