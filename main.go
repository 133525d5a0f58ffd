package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/atelier-studio/atelier-api/app/db"
	"github.com/atelier-studio/atelier-api/app/tracer"
	"github.com/atelier-studio/atelier-api/config"
	"github.com/atelier-studio/atelier-api/internal/api/audit"
	"github.com/atelier-studio/atelier-api/internal/api/auth"
	"github.com/atelier-studio/atelier-api/internal/api/design"
	"github.com/atelier-studio/atelier-api/internal/api/wishlist"
	"github.com/atelier-studio/atelier-api/internal/imagestore"
	"github.com/atelier-studio/atelier-api/internal/router"
	"github.com/atelier-studio/atelier-api/internal/seed"
)

func main() {
	// Standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.IsProduction())
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsHandler, err := tracer.Init("atelier-api")
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	requestMetrics, err := tracer.RequestMetrics("atelier-api")
	if err != nil {
		logger.Error("Failed to initialize request metrics", slog.Any("error", err))
		os.Exit(1)
	}

	// Migrations run before the main pool comes up.
	if err := database.RunMigrations(cfg.Database.URL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(cfg.Database.URL, cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database did not become ready")
		os.Exit(1)
	}

	images, err := imagestore.NewMinioStore(cfg.ImageStore, logger)
	if err != nil {
		logger.Error("Failed to initialize image store", slog.Any("error", err))
		os.Exit(1)
	}
	if err := images.EnsureBucket(ctx); err != nil {
		logger.Error("Failed to ensure image store bucket", slog.Any("error", err))
		os.Exit(1)
	}

	auditRecorder := audit.NewPostgresRecorder(pool, logger)

	userRepo := auth.NewPostgresUserRepo(pool, logger)
	authService := auth.NewAuthService(userRepo, auditRecorder, cfg.JWT, logger)
	authHandler := auth.NewHandler(authService, logger)

	designRepo := design.NewPostgresRepository(pool, auditRecorder, logger)
	designService := design.NewService(designRepo, images, auditRecorder, logger)
	designHandler := design.NewHandler(designService, cfg.Upload, cfg.AllowedMimeTypes(), logger)

	wishlistRepo := wishlist.NewPostgresRepository(pool, logger)
	wishlistService := wishlist.NewService(wishlistRepo, designRepo, auditRecorder, logger)
	wishlistHandler := wishlist.NewHandler(wishlistService, logger)

	seeder := seed.New(userRepo, authService, pool, logger)
	if err := seeder.EnsureAdmin(ctx, cfg.Admin); err != nil {
		logger.Error("Failed to seed admin account", slog.Any("error", err))
		os.Exit(1)
	}
	if !cfg.IsProduction() {
		if err := seeder.EnsureSampleDesigns(ctx); err != nil {
			logger.Warn("Failed to seed sample designs", slog.Any("error", err))
		}
	}

	handler := router.Setup(&router.Deps{
		Config:          &cfg,
		Logger:          logger,
		AuthService:     authService,
		AuthHandler:     authHandler,
		DesignHandler:   designHandler,
		WishlistHandler: wishlistHandler,
		MetricsHandler:  metricsHandler,
		RequestMetrics:  requestMetrics,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			slog.String("port", cfg.Server.Port),
			slog.String("mode", cfg.Mode))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received, draining connections")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", slog.Any("error", err))
			_ = server.Close()
		}
	}

	logger.Info("Server stopped")
}

func setupLogger(production bool) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}
