package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/handler"
	"github.com/yourorg/staffdesk/internal/infrastructure/logger"
	"github.com/yourorg/staffdesk/internal/infrastructure/redis"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/observability/tracing"
	"github.com/yourorg/staffdesk/internal/reliability/retry"
	"github.com/yourorg/staffdesk/internal/repository"
	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/internal/security/auth"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/security/ratelimit"
	"github.com/yourorg/staffdesk/internal/service"
	"github.com/yourorg/staffdesk/internal/worker"
	"github.com/yourorg/staffdesk/pkg/config"
	"github.com/yourorg/staffdesk/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting StaffDesk server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, log, "staffdesk", cfg.Environment, cfg.OTLPEndpoint, cfg.TracingSampleRatio)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// 4. Connect to Postgres, retrying while the database comes up
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "postgres connect", func(ctx context.Context) (*database.ConnectionPool, error) {
		return database.NewConnectionPool(ctx, &database.Config{
			Host:     cfg.DatabaseHost,
			Port:     cfg.DatabasePort,
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		}, log)
	})
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	// 5. Connect to Redis. The role cache degrades to store lookups when
	// Redis is down, so a failed connect is fatal only at startup.
	redisClient, err := retry.Do(ctx, retry.DefaultConfig(), log, "redis connect", func(ctx context.Context) (*redis.Client, error) {
		return redis.NewClient(cfg.RedisURL)
	})
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(db, log)
	businessRepo := repository.NewPostgresBusinessRepository(db, log)
	membershipRepo := repository.NewPostgresMembershipRepository(db, log)
	featureRepo := repository.NewPostgresFeatureRepository(db, log)

	roleResolver := repository.NewCachedRoleResolver(
		repository.NewDBRoleResolver(membershipRepo),
		redisClient,
		cfg.RoleCacheTTL,
		log,
	)

	// 7. Initialize the policy engine and services
	engine := authz.NewEngine(roleResolver, log)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "staffdesk")
	auditLogger := audit.NewLogger(log)

	actors := service.NewActorResolver(userRepo)
	invitationService := service.NewInvitationService(userRepo, businessRepo, membershipRepo, engine, roleResolver, auditLogger, log)
	authService := service.NewAuthService(userRepo, invitationService, tokenManager, cfg.TokenTTL, log)
	businessService := service.NewBusinessService(businessRepo, membershipRepo, engine, roleResolver, auditLogger, log)
	membershipService := service.NewMembershipService(userRepo, businessRepo, membershipRepo, engine, roleResolver, auditLogger, log)
	userService := service.NewUserService(userRepo, engine, tokenManager, auditLogger, log)
	featureService := service.NewFeatureService(businessRepo, featureRepo, engine, auditLogger, log)

	// 8. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, actors, log)
	businessHandler := handler.NewBusinessHandler(businessService, actors, log)
	membershipHandler := handler.NewMembershipHandler(membershipService, actors, log)
	invitationHandler := handler.NewInvitationHandler(invitationService, actors, log)
	userHandler := handler.NewUserHandler(userService, actors, log)
	featureHandler := handler.NewFeatureHandler(featureService, actors, log)
	healthHandler := handler.NewHealthHandler(db, redisClient, log)
	auditStreamHandler := handler.NewAuditStreamHandler(auditLogger, actors, log, cfg.CORSAllowedOrigins)

	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)

	// 9. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	mux.HandleFunc("GET /api/businesses", businessHandler.List)
	mux.HandleFunc("POST /api/businesses", businessHandler.Create)
	mux.HandleFunc("GET /api/businesses/{slug}", businessHandler.Get)
	mux.HandleFunc("PUT /api/businesses/{slug}", businessHandler.Update)
	mux.HandleFunc("DELETE /api/businesses/{slug}", businessHandler.Delete)
	mux.HandleFunc("POST /api/businesses/{slug}/restore", businessHandler.Restore)
	mux.HandleFunc("DELETE /api/businesses/{slug}/force", businessHandler.ForceDelete)

	mux.HandleFunc("GET /api/businesses/{slug}/members", membershipHandler.List)
	mux.HandleFunc("POST /api/businesses/{slug}/members", membershipHandler.Add)
	mux.HandleFunc("PUT /api/businesses/{slug}/members/{userId}", membershipHandler.Update)
	mux.HandleFunc("DELETE /api/businesses/{slug}/members/{userId}", membershipHandler.Remove)
	mux.HandleFunc("GET /api/memberships", membershipHandler.ListMine)

	mux.HandleFunc("POST /api/businesses/{slug}/invitations", invitationHandler.Invite)
	mux.HandleFunc("POST /api/invitations/{token}/accept", invitationHandler.Accept)
	mux.HandleFunc("POST /api/invitations/{token}/decline", invitationHandler.Decline)

	mux.HandleFunc("GET /api/users", userHandler.List)
	mux.HandleFunc("GET /api/users/{id}", userHandler.Get)
	mux.HandleFunc("PUT /api/users/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", userHandler.Delete)
	mux.HandleFunc("PUT /api/users/{id}/role", userHandler.ChangeRole)
	mux.HandleFunc("POST /api/users/{id}/impersonate", userHandler.Impersonate)

	mux.HandleFunc("GET /api/businesses/{slug}/features", featureHandler.List)
	mux.HandleFunc("PUT /api/businesses/{slug}/features/{key}", featureHandler.Set)

	mux.Handle("GET /ws/audit", auditStreamHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> rate limit -> validation -> CORS -> mux
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.JWTMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.ValidateJSONContentType(log)(
						middleware.SanitizeInputs(log)(handlerWithCORS),
					),
				),
			),
		),
		log,
	)

	// 10. Start the invitation reaper in the background
	reaper := worker.NewInvitationReaper(
		invitationService,
		log,
		time.Duration(cfg.ReaperIntervalMinutes)*time.Minute,
		cfg.InvitationTTL,
	)
	go reaper.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "staffdesk"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop the invitation reaper
	rateLimiter.Stop()
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
