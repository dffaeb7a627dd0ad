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

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/handler"
	"github.com/localhood/gatekeeper/internal/infrastructure/barrier"
	"github.com/localhood/gatekeeper/internal/infrastructure/logger"
	"github.com/localhood/gatekeeper/internal/infrastructure/redis"
	"github.com/localhood/gatekeeper/internal/notify"
	"github.com/localhood/gatekeeper/internal/observability/metrics"
	"github.com/localhood/gatekeeper/internal/observability/tracing"
	"github.com/localhood/gatekeeper/internal/repository"
	"github.com/localhood/gatekeeper/internal/repository/memory"
	"github.com/localhood/gatekeeper/internal/security/audit"
	"github.com/localhood/gatekeeper/internal/security/auth"
	"github.com/localhood/gatekeeper/internal/security/middleware"
	"github.com/localhood/gatekeeper/internal/security/ratelimit"
	"github.com/localhood/gatekeeper/internal/service"
	"github.com/localhood/gatekeeper/internal/worker"
	"github.com/localhood/gatekeeper/internal/ws"
	"github.com/localhood/gatekeeper/pkg/config"
	"github.com/localhood/gatekeeper/pkg/database"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	log.Info("starting gatekeeper server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "gatekeeper", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Optional Redis for barrier config caching
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	// 5. Storage: Postgres when configured, in-memory for development
	var (
		pool      *database.ConnectionPool
		creds     domain.CredentialRepository
		logs      domain.AccessLogRepository
		barriers  domain.BarrierRepository
		residents domain.ResidentRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err = database.NewConnectionPool(ctx, &database.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		}, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		if err := repository.Migrate(ctx, pool.GetDB()); err != nil {
			log.Error("migration failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		creds = repository.NewPostgresCredentialRepository(pool.GetDB(), log)
		logs = repository.NewPostgresAccessLogRepository(pool.GetDB(), log)
		barriers = repository.NewPostgresBarrierRepository(pool.GetDB(), log)
		residents = repository.NewPostgresResidentRepository(pool.GetDB(), log)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores with demo data")
		creds, logs, barriers, residents = seedMemoryStores(log)
	}

	barriers = repository.NewCachedBarrierRepository(barriers, redisClient, 5*time.Minute, log)

	// 6. Notifications
	smsSender := notify.NewGatewayClient(notify.GatewayConfig{
		Enabled:    cfg.SMSEnabled,
		GatewayURL: cfg.SMSGatewayURL,
		APIKey:     cfg.SMSAPIKey,
		Sender:     cfg.SMSSender,
	}, log)
	notifier := notify.NewSMSNotifier(residents, smsSender, log)

	// 7. Live feed hub
	feedHub := ws.NewFeedHub(log)
	go feedHub.Run(ctx)

	// 8. Services
	clock := domain.SystemClock()
	guestService := service.NewGuestAccessService(creds, residents, clock, log, cfg)
	validationService := service.NewValidationService(creds, logs, barriers, residents, notifier, feedHub, clock, log)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "gatekeeper")
	authService := service.NewAuthService(residents, tokenManager, cfg.TokenLifetime, log)

	opener := barrier.NewClient(log)

	// 9. Handlers
	loginHandler := handler.NewLoginHandler(authService, log)
	issueHandler := handler.NewIssueGuestHandler(guestService, log)
	credentialHandler := handler.NewCredentialHandler(guestService, log)
	guestListHandler := handler.NewGuestListHandler(guestService, log)
	historyHandler := handler.NewHistoryHandler(validationService, log)
	openHandler := handler.NewOpenBarrierHandler(validationService, opener, log)
	entryHandler := handler.NewValidateHandler(validationService, barriers, opener, domain.ActionEntry, log)
	exitHandler := handler.NewValidateHandler(validationService, barriers, opener, domain.ActionExit, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 9a. Security components
	rateLimiter := ratelimit.NewLimiter(120, time.Minute) // per user / barrier key
	auditLogger := audit.NewLogger(log)

	// 10. Routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/auth/login", loginHandler)
	mux.Handle("POST /api/v1/barrier/guest-access", issueHandler)
	mux.HandleFunc("GET /api/v1/guest-access/{id}", credentialHandler.Get)
	mux.HandleFunc("DELETE /api/v1/guest-access/{id}", credentialHandler.Cancel)
	mux.Handle("GET /api/v1/guests", guestListHandler)
	mux.Handle("GET /api/v1/barrier/history", historyHandler)
	mux.Handle("POST /api/v1/barrier/open", openHandler)
	mux.Handle("POST /api/v1/barrier/entry", entryHandler)
	mux.Handle("POST /api/v1/barrier/exit", exitHandler)
	mux.HandleFunc("GET /ws/feed", feedHub.ServeFeed)
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
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Barrier-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain: request ID -> JWT -> rate limit -> audit -> CORS -> routes.
	// JWT runs first so downstream middleware sees the authenticated actor.
	rootHandler := withRequestID(
		middleware.JWTMiddleware(tokenManager, log)(
			middleware.RateLimitMiddleware(rateLimiter, log)(
				middleware.AuditMiddleware(auditLogger)(handlerWithCORS),
			),
		),
		log,
	)
	rootHandler = metrics.HTTPMetricsMiddleware(rootHandler)
	rootHandler = otelhttp.NewHandler(rootHandler, "gatekeeper")

	// 11. Expiry and overstay monitor
	monitor := worker.NewMonitor(creds, notifier, clock, log, cfg.SweepInterval, cfg.OverstayThreshold())
	go monitor.Start(ctx)

	// 12. HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

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

	cancel() // stop monitor and feed hub
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// seedMemoryStores builds the in-memory development fixture: one complex,
// one chairman, one resident and one barrier with a known key.
func seedMemoryStores(log *slog.Logger) (domain.CredentialRepository, domain.AccessLogRepository, domain.BarrierRepository, domain.ResidentRepository) {
	creds := memory.NewCredentialStore()
	logs := memory.NewAccessLogStore()
	barriers := memory.NewBarrierStore()
	residents := memory.NewResidentStore()

	complexID := uuid.NewString()
	hash, err := service.HashPassword("demo1234")
	if err != nil {
		log.Error("failed to hash demo password", slog.String("error", err.Error()))
		os.Exit(1)
	}

	chairman := &domain.Resident{
		ID:           uuid.NewString(),
		ComplexID:    complexID,
		Phone:        "+70000000001",
		FullName:     "Demo Chairman",
		PasswordHash: hash,
		Role:         domain.RoleChairman,
	}
	resident := &domain.Resident{
		ID:           uuid.NewString(),
		ComplexID:    complexID,
		Phone:        "+70000000002",
		FullName:     "Demo Resident",
		PasswordHash: hash,
		Role:         domain.RoleResident,
	}
	gate := &domain.Barrier{
		ID:        uuid.NewString(),
		ComplexID: complexID,
		Name:      "Main Gate",
		Location:  "north entrance",
		APIKey:    "demo-barrier-key",
		IsActive:  true,
	}
	residents.Put(chairman)
	residents.Put(resident)
	barriers.Put(gate)

	log.Info("seeded demo data",
		slog.String("chairman_phone", chairman.Phone),
		slog.String("resident_phone", resident.Phone),
		slog.String("barrier_id", gate.ID),
		slog.String("password", "demo1234"),
	)

	return creds, logs, barriers, residents
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
