package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resumematch/scanner-web/internal/services"
)

// SetupRoutes mounts every page and API route on app.
func SetupRoutes(app *fiber.App, registry *services.TabRegistry, uploads services.UploadStore) {
	authHandler := NewAuthHandler()
	scanHandler := NewScanHandler(uploads)
	historyHandler := NewHistoryHandler()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"tabs":   registry.Len(),
			"time":   time.Now(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(services.DefaultLandRoute, fiber.StatusFound)
	})

	tabbed := app.Group("", TabMiddleware(registry))

	tabbed.Get("/login", authHandler.HandleLoginView)
	tabbed.Get("/register", authHandler.HandleRegisterView)
	tabbed.Post("/api/login", authHandler.HandleLogin)
	tabbed.Post("/api/register", authHandler.HandleRegister)
	tabbed.Post("/api/logout", authHandler.HandleLogout)
	tabbed.Get("/api/session", authHandler.HandleSession)

	guarded := tabbed.Group("", RequireAuth())

	guarded.Get("/scan", scanHandler.HandleScanView)
	guarded.Post("/api/scan", scanHandler.HandleScan)
	guarded.Post("/api/scans", scanHandler.HandleSave)
	guarded.Get("/history", historyHandler.HandleHistoryView)
	guarded.Get("/history/:id/load", historyHandler.HandleLoad)
}
