package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/waqf-api/internal/config"
	"github.com/noah-isme/waqf-api/internal/handler"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/roles"
)

// Dependencies groups router dependencies for registration. Backend handlers are nil when
// the satellite is disabled.
type Dependencies struct {
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	AdminHandler  *handler.AdminHandler
	Bootstrap     *handler.BootstrapHandler
	AuditHandler  *handler.AuditHandler
	CauseHandler  *handler.CauseHandler
	WaqfHandler   *handler.WaqfHandler
	UploadHandler *handler.UploadHandler
	Permissions   middleware.PermissionChecker
	JWTMiddleware fiber.Handler
	Metrics       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics)
	}

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	if deps.HealthHandler != nil {
		deps.HealthHandler.Register(api.Group("/health"))
	} else {
		api.Get("/health", handler.HealthCheck(cfg))
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.Use("/sign-in", middleware.RateLimit("sign-in", 10, time.Minute))
		auth.Use("/callback", middleware.RateLimit("sign-in-callback", 10, time.Minute))
		deps.AuthHandler.RegisterPublic(auth)
		deps.AuthHandler.RegisterSession(auth, jwtMiddleware)
	}

	if deps.CauseHandler != nil {
		deps.CauseHandler.RegisterPublic(api.Group("/causes"), jwtMiddleware)
	}

	if deps.WaqfHandler != nil {
		waqfs := api.Group("/waqfs", jwtMiddleware, middleware.RequireUser())
		deps.WaqfHandler.Register(waqfs, permission(deps, roles.PermissionSettings))
	}

	if deps.Permissions == nil {
		return
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireUser())
	if deps.Bootstrap != nil {
		deps.Bootstrap.Register(admin)
	}
	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(admin.Group("/admins", permission(deps, roles.PermissionUsers)))
	}
	if deps.AuditHandler != nil {
		deps.AuditHandler.Register(admin.Group("/audit", permission(deps, roles.PermissionUsers)))
	}
	if deps.CauseHandler != nil {
		deps.CauseHandler.RegisterAdmin(admin.Group("/causes", permission(deps, roles.PermissionContent)))
	}
	if deps.UploadHandler != nil {
		uploads := admin.Group("/uploads", permission(deps, roles.PermissionContent))
		uploads.Use(middleware.RateLimit("uploads", 30, time.Minute))
		deps.UploadHandler.Register(uploads)
	}
}

func permission(deps Dependencies, perm roles.Permission) fiber.Handler {
	if deps.Permissions == nil {
		return func(c *fiber.Ctx) error {
			return fiber.ErrServiceUnavailable
		}
	}
	return middleware.RequirePermission(deps.Permissions, perm)
}
