// Package main is the entry point for the ArtHive gallery server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arthive/arthive/internal/config"
	"github.com/arthive/arthive/internal/database"
	"github.com/arthive/arthive/internal/handler"
	"github.com/arthive/arthive/internal/mailer"
	"github.com/arthive/arthive/internal/mediatype"
	"github.com/arthive/arthive/internal/middleware"
	"github.com/arthive/arthive/internal/otp"
	"github.com/arthive/arthive/internal/pkg/response"
	"github.com/arthive/arthive/internal/repository"
	"github.com/arthive/arthive/internal/service"
	"github.com/arthive/arthive/internal/storage"
)

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting ArtHive",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Connect to Redis
	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Upload store
	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize upload store: %v", err)
	}
	logger.Info("Upload store ready", slog.String("backend", cfg.Storage.Backend))

	// Outbound mail
	sender, err := mailer.NewSMTPSender(cfg.SMTP)
	if err != nil {
		log.Fatalf("Failed to initialize SMTP sender: %v", err)
	}

	// OTP manager backed by Redis so pending codes expire on their own
	otpManager := otp.NewManager(otp.NewRedisStore(redis), sender, cfg.Auth.OTPTTL)

	// Repositories and services
	mediaRepo := repository.NewMediaRepository(db.Pool())
	userRepo := repository.NewUserRepository(db.Pool())
	mediaService := service.NewMediaService(mediaRepo, store, logger)
	authService := service.NewAuthService(userRepo, otpManager, cfg.Auth.BcryptCost, logger)

	// Cookie sessions for verified logins
	sessionStore := sessions.NewCookieStore([]byte(cfg.Auth.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Auth.SessionExpiry.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Server.Environment == "prod",
		SameSite: http.SameSiteLaxMode,
	}

	mediaHandler := handler.NewMediaHandler(mediaService)
	authHandler := handler.NewAuthHandler(authService, sessionStore, cfg.Auth.SessionName, logger)

	// Setup router
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(nil))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, redis))
	r.Handle("/metrics", promhttp.Handler())

	// Gallery routes, one mount per category
	for _, spec := range mediatype.All() {
		r.Mount(spec.ListPath, mediaHandler.Routes(spec.Category))
	}

	// Files persisted outside the database
	r.Get("/uploads/{key}", mediaHandler.ServeUpload)

	// Auth routes get a tighter rate limit
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(redis, middleware.AuthRateLimitConfig()))
		r.Post("/signup", authHandler.Signup)
		r.Post("/signin", authHandler.Signin)
		r.Post("/verify-otp", authHandler.VerifyOTP)
	})

	// Logged-in landing, target of the post-login redirect
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessionStore, cfg.Auth.SessionName))
		r.Get("/dashboard", dashboardHandler())
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// newStore builds the configured upload store backend.
func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Store(context.Background(), cfg.Storage)
	case "disk", "":
		return storage.NewDiskStore(cfg.Storage.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// dashboardHandler reports the logged-in identity from the session.
func dashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"user_id": middleware.GetUserID(r.Context()),
			"email":   middleware.GetUserEmail(r.Context()),
		})
	}
}

// healthHandler returns a simple health check that always succeeds if the server is running.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// readyHandler returns a readiness check that verifies database and Redis connections.
func readyHandler(db *database.Postgres, redis *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		// Check database connection
		if err := db.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"database"}`))
			return
		}

		// Check Redis connection
		if err := redis.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"redis"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","database":"connected","redis":"connected"}`))
	}
}
