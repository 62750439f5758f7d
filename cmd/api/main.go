package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/internal/config"
	"github.com/fairyhunter13/hosting-checkout/internal/handler"
	"github.com/fairyhunter13/hosting-checkout/internal/remote"
	"github.com/fairyhunter13/hosting-checkout/internal/repository"
	"github.com/fairyhunter13/hosting-checkout/internal/service"
	"github.com/fairyhunter13/hosting-checkout/internal/validator"
	"github.com/fairyhunter13/hosting-checkout/pkg/database"
	"github.com/fairyhunter13/hosting-checkout/pkg/kvstore"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	// Durable notification markers, survive restarts
	markers, err := kvstore.NewBoltStore(cfg.Marker.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Marker.DBPath).Msg("failed to open marker store")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Hosting Checkout",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Outbound clients for the external collaborators
	emailClient := remote.NewEmailClient(cfg.Remote.EmailVerifyURL, cfg.Remote.Timeout)
	redeemClient := remote.NewRedeemClient(cfg.Remote.RedeemValidateURL, cfg.Remote.RedeemConsumeURL, cfg.Remote.Timeout)
	notifyClient := remote.NewNotifyClient(cfg.Remote.NotifyURL, cfg.Remote.Timeout)

	// Initialize checkout components (layered architecture)
	sessionRepo := repository.NewSessionRepository(pool)
	redeemCheckRepo := repository.NewRedeemCheckRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	emailPipeline := service.NewEmailPipeline(sessionRepo, emailClient)
	redeemService := service.NewRedeemService(sessionRepo, redeemCheckRepo, redeemClient)
	checkoutService := service.NewCheckoutService(pool, sessionRepo, orderRepo, emailPipeline, redeemService)
	dispatchService := service.NewDispatchService(orderRepo, markers, notifyClient)

	checkoutHandler := handler.NewCheckoutHandler(checkoutService, emailPipeline, redeemService, validate)
	planHandler := handler.NewPlanHandler()
	orderHandler := handler.NewOrderHandler(dispatchService)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool, markers)
	app.Get("/health", healthHandler.Check)

	// Plan catalog routes
	app.Get("/api/plans", planHandler.List)
	app.Get("/api/plans/:id", planHandler.Get)

	// Checkout session routes
	app.Post("/api/checkout/sessions", checkoutHandler.CreateSession)
	app.Get("/api/checkout/sessions/:id", checkoutHandler.GetSession)
	app.Patch("/api/checkout/sessions/:id", checkoutHandler.UpdateSession)
	app.Post("/api/checkout/sessions/:id/verify-email", checkoutHandler.VerifyEmail)
	app.Post("/api/checkout/sessions/:id/redeem", checkoutHandler.Redeem)
	app.Get("/api/checkout/sessions/:id/quote", checkoutHandler.Quote)
	app.Post("/api/checkout/sessions/:id/submit", checkoutHandler.Submit)

	// Order routes
	app.Get("/api/orders/:id", orderHandler.Get)
	app.Post("/api/orders/:id/notify", orderHandler.Notify)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close stores AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	if err := markers.Close(); err != nil {
		log.Error().Err(err).Msg("error closing marker store")
	}
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
