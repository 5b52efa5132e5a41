package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"resumematch/scanner-web/internal/config"
	"resumematch/scanner-web/internal/handlers"
	"resumematch/scanner-web/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tab storage
	storage, closeStorage, err := config.OpenTabStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize tab storage: %v", err)
	}
	defer closeStorage()

	// Initialize services
	uploads := services.NewUploadStore(cfg.Upload.Path, cfg.Upload.MaxFileSize)
	if err := uploads.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	parser := services.NewDocumentParserService(cfg.Upload.MaxFileSize)
	registry := services.NewTabRegistry(storage, services.PipelineConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, parser)
	log.Printf("✅ Services initialized (backend %s)\n", cfg.Backend.BaseURL)

	// Start janitor
	janitor := services.NewJanitor(storage, registry, cfg.Janitor.Schedule, cfg.Janitor.IdleTTL)
	if err := janitor.Start(ctx); err != nil {
		log.Fatalf("❌ Failed to start janitor: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Resume Scanner Web",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Upload.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, " + handlers.TabHeader,
		ExposeHeaders:    handlers.TabHeader,
		AllowCredentials: true,
	}))

	// Routes
	handlers.SetupRoutes(app, registry, uploads)
	log.Println("✅ Routes registered")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		janitor.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
