package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/config"
	"github.com/noah-isme/waqf-api/internal/handler"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/observability"
	"github.com/noah-isme/waqf-api/internal/repository"
	"github.com/noah-isme/waqf-api/internal/router"
	"github.com/noah-isme/waqf-api/internal/satellite"
	"github.com/noah-isme/waqf-api/internal/service"
	cloud "github.com/noah-isme/waqf-api/pkg/cloudinary"
	"github.com/noah-isme/waqf-api/pkg/identity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := satellite.Open(ctx, satellite.OptionsFromConfig(cfg), logger)
	if err != nil {
		var initErr *satellite.InitError
		if errors.As(err, &initErr) {
			logger.Error().Err(initErr.Err).Str("phase", string(initErr.Phase)).Int("attempts", initErr.Attempts).Msg("backend initialisation failed")
		}
		log.Fatalf("failed to open satellite: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close satellite")
		}
	}()

	validate := validator.New(validator.WithRequiredStructEnabled())

	deps := router.Dependencies{
		Metrics: observability.MetricsHandler(),
	}

	if !conn.Ready() {
		deps.HealthHandler = handler.NewHealthHandler(cfg, nil, string(conn.Status), logger)
	} else {
		deps = wireBackend(ctx, cfg, conn, validate, logger, deps)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
	cancel()
}

func wireBackend(ctx context.Context, cfg config.Config, conn *satellite.Connection, validate *validator.Validate, logger zerolog.Logger, deps router.Dependencies) router.Dependencies {
	var events service.EventBus = service.NopEventBus{}
	if conn.NATS != nil {
		events = service.NewNATSEventBus(conn.NATS, cfg.EventSubjectPrefix, logger)
	}

	adminRepo := repository.NewAdminRepository(conn.Store)
	auditRepo := repository.NewAuditRepository(conn.Store)
	waqfRepo := repository.NewWaqfRepository(conn.Store)
	causeRepo := repository.NewCauseRepository(conn.Store)
	donationRepo := repository.NewDonationRepository(conn.Store)
	allocationRepo := repository.NewAllocationRepository(conn.Store)
	uploadRepo := repository.NewUploadRepository(conn.Store)
	userRepo := repository.NewUserRepository(conn.Store)

	auditService := service.NewAuditService(auditRepo, events, logger)
	adminRegistry := service.NewAdminRegistry(adminRepo, auditService, logger)
	analyticsService := service.NewWaqfAnalyticsService(donationRepo, allocationRepo, conn.Redis, cfg.CacheTTL, logger)
	waqfService := service.NewWaqfService(waqfRepo, validate, logger)
	donationService := service.NewDonationService(donationRepo, waqfRepo, analyticsService, validate, logger)
	allocationService := service.NewAllocationService(allocationRepo, waqfRepo, causeRepo, analyticsService, validate, logger)
	causeService := service.NewCauseService(causeRepo, conn.Redis, cfg.CacheTTL, validate, logger)

	var provider service.IdentityProvider
	if cfg.OIDCEnabled() {
		oidcProvider, err := identity.New(ctx, identity.Config{
			IssuerURL:    cfg.OIDCIssuerURL,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("identity provider unavailable, sign-in disabled")
		} else {
			provider = oidcProvider
		}
	}

	authService := service.NewAuthService(provider, userRepo, adminRegistry, conn.Redis, events, cfg.JWTSecret, cfg.SessionTTL, logger)
	if err := authService.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to subscribe to auth-state events")
	}

	var monitor handler.HealthSource
	if cfg.HealthChecksEnabled {
		healthMonitor := service.NewHealthMonitor(conn.Store, cfg.HealthCheckInterval, logger)
		if err := healthMonitor.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to start health monitor")
		} else {
			monitor = healthMonitor
		}
	}

	deps.HealthHandler = handler.NewHealthHandler(cfg, monitor, string(conn.Status), logger)
	deps.AuthHandler = handler.NewAuthHandler(authService, validate, logger)
	deps.AdminHandler = handler.NewAdminHandler(adminRegistry, validate, logger)
	deps.Bootstrap = handler.NewBootstrapHandler(service.NewBootstrapService(adminRegistry, cfg.BootstrapEnabled, logger), validate, logger)
	deps.AuditHandler = handler.NewAuditHandler(auditService, logger)
	deps.CauseHandler = handler.NewCauseHandler(causeService, logger)
	deps.WaqfHandler = handler.NewWaqfHandler(waqfService, donationService, allocationService, analyticsService, adminRegistry, logger)
	deps.Permissions = adminRegistry
	deps.JWTMiddleware = middleware.JWTProtected(cfg.JWTSecret, authService)

	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create cloudinary client, uploads disabled")
		} else {
			uploadService := service.NewUploadService(uploader, uploadRepo, cfg.UploadMaxSizeMB, logger)
			deps.UploadHandler = handler.NewUploadHandler(uploadService, logger)
		}
	}

	return deps
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
