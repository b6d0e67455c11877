package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/background"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/config"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/database"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/handlers"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/metrics"
	middlewareCustom "github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/middleware"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/repositories"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/routes"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/search"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/services"
	pkgauth "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/auth"
	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
	pkglogger "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Apply schema before opening the pool
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, &cfg.Database, logger); err != nil {
			logger.Error("failed to migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize database
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize search index
	index, err := search.Open(ctx, cfg.Index.DSN)
	if err != nil {
		logger.Error("failed to open search index", slog.Any("error", err))
		os.Exit(1)
	}
	defer index.Close()

	// Metrics
	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	// Credential primitives
	hasher, err := pkgauth.NewPasswordHasher(cfg.Credential.Pepper, cfg.Credential.BcryptCost)
	if err != nil {
		logger.Error("failed to initialize password hasher", slog.Any("error", err))
		os.Exit(1)
	}
	policy := pkgauth.NewPasswordPolicy(cfg.Credential.MinPasswordLength, cfg.Credential.MinStrength, cfg.Credential.WeakPasswords...)
	codec := auth.NewResetTokenCodec()
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: cfg.Auth.TimingDelayOnSuccess,
	})

	// Repositories and background workers
	userRepo := repositories.NewUserRepository(db)
	reindexer := background.NewReindexer(userRepo, index, collector, logger)

	// Initialize services
	userService := services.NewUserService(userRepo, index, reindexer, hasher, policy, collector, auditLogger, logger)
	credentialService := services.NewCredentialService(userRepo, hasher, policy, codec, collector, auditLogger, logger)

	if cfg.Email.Enabled {
		emailService, err := services.NewAWSSESEmailService(ctx,
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.ResetURLBase,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		credentialService.WithNotifier(emailService)
	}

	driftMonitor := background.NewDriftMonitor(userService, logger, cfg.Index.DriftCheckInterval)

	// Bootstrap first user if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ensureBootstrapUser(bootstrapCtx, userService, logger); err != nil {
		logger.Error("failed to ensure bootstrap user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	userHandler := handlers.NewUserHandler(userService)
	authHandler := handlers.NewAuthHandler(credentialService, timingDelay, ipConfig, logger)
	passwordHandler := handlers.NewPasswordHandler(credentialService, tokenManager, ipConfig, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, userHandler, authHandler, passwordHandler, tokenManager,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Auth.RateLimitPerMinute})

	router.Handle("/metrics", promhttp.Handler())

	router.Get("/health", healthHandler(db, index, reindexer))

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start background workers
	go reindexer.Start(ctx)
	go driftMonitor.Start(ctx)
	go func() {
		for err := range reindexer.Errors() {
			logger.Warn("reindex failed, waiting for next drift check", slog.Any("error", err))
		}
	}()

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	driftMonitor.Stop()
	reindexer.Stop()
	cancel()

	logger.Info("server stopped gracefully")
}

// ensureBootstrapUser creates the first user if BOOTSTRAP_USERNAME and
// BOOTSTRAP_PASSWORD are set
func ensureBootstrapUser(ctx context.Context, users *services.UserService, logger *slog.Logger) error {
	username := os.Getenv("BOOTSTRAP_USERNAME")
	password := os.Getenv("BOOTSTRAP_PASSWORD")

	if username == "" || password == "" {
		logger.Info("no BOOTSTRAP_USERNAME or BOOTSTRAP_PASSWORD set, skipping bootstrap user creation")
		return nil
	}

	_, err := users.GetUserByUsername(ctx, username)
	if err == nil {
		logger.Info("bootstrap user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if bootstrap user exists: %w", err)
	}

	_, err = users.CreateUser(ctx, &models.User{
		Username:  username,
		FirstName: "Bootstrap",
		LastName:  "User",
	}, password)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	logger.Info("bootstrap user created successfully")
	return nil
}
