// Package main is the entrypoint for the Redeemly API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/redeemly/redeemly/internal/cache"
	"github.com/redeemly/redeemly/internal/config"
	"github.com/redeemly/redeemly/internal/events"
	"github.com/redeemly/redeemly/internal/handler"
	"github.com/redeemly/redeemly/internal/metrics"
	"github.com/redeemly/redeemly/internal/middleware"
	"github.com/redeemly/redeemly/internal/repository"
	"github.com/redeemly/redeemly/internal/server"
	"github.com/redeemly/redeemly/internal/service"
	"github.com/redeemly/redeemly/migrations"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Run schema migrations before accepting traffic
	if err := repository.RunMigrations(cfg.DatabaseURL, migrations.FS); err != nil {
		logger.Error(
			"failed to run migrations",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache. Redis is optional: without it rate limiting
	// falls back to in-process buckets and the event pipeline is off.
	var cacheClient *cache.Cache
	if cfg.HasRedis() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer cacheClient.Close()
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, running without campaign cache and event pipeline")
	}

	// Metrics recorder backing the /metrics endpoint
	metricsRecorder := metrics.NewInMemory()

	// Redemption store, optionally fronted by the campaign cache
	var campaignCache service.CampaignCache
	if cacheClient != nil {
		campaignCache = cacheClient
	}
	store := service.NewCachedStore(repo, campaignCache, metricsRecorder)

	// Initialize services
	campaignService := service.NewCampaignService(repo, campaignCache)
	codeService := service.NewCodeService(repo, metricsRecorder)
	redemptionService := service.NewRedemptionService(store, metricsRecorder)

	// Event pipeline
	eventRepo := repository.NewEventRepository(repo)
	var publisher *events.Publisher
	if cacheClient != nil {
		publisher = events.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	}

	// Initialize handlers
	h := handler.New()
	var cacheChecker handler.HealthChecker
	if cacheClient != nil {
		cacheChecker = cacheClient
	}
	healthHandler := handler.NewHealthHandler(repo, cacheChecker)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	campaignHandler := handler.NewCampaignHandler(campaignService, logger)
	codeHandler := handler.NewCodeHandler(codeService, logger)
	redeemHandler := handler.NewRedeemHandler(redemptionService, publisher, logger)
	parseHandler := handler.NewParseHandler(logger)
	statsHandler := handler.NewStatsHandler(repo, eventRepo, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo)
	adminHandler := handler.NewAdminHandler(repo, repo, repo, logger)

	// Setup router
	r := setupRouter(routerDeps{
		base:      h,
		health:    healthHandler,
		metrics:   metricsHandler,
		campaigns: campaignHandler,
		codes:     codeHandler,
		redeem:    redeemHandler,
		parse:     parseHandler,
		stats:     statsHandler,
		apiKeys:   apiKeyHandler,
		admin:     adminHandler,
	}, repo, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the event worker after the server exists so its shutdown
	// hook runs inside the server's drain window.
	if cacheClient != nil && cfg.EventWorkerEnabled {
		worker := events.NewWorker(cacheClient.Client(), eventRepo, logger, events.NewConsumerID(), metricsRecorder)
		worker.SetBatchSize(cfg.EventBatchSize)
		worker.SetBlockTimeout(cfg.EventBlockTimeout)

		workerCtx, cancelWorker := context.WithCancel(ctx)
		go func() {
			if err := worker.Run(workerCtx); err != nil {
				logger.Error("event worker stopped", "error", err)
			}
		}()

		srv.OnShutdown("event_worker", func(ctx context.Context) error {
			defer cancelWorker()
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.EventShutdownTimeout)
			defer cancel()
			return worker.Shutdown(shutdownCtx)
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps bundles the handlers the router mounts.
type routerDeps struct {
	base      *handler.Handler
	health    *handler.HealthHandler
	metrics   *handler.MetricsHandler
	campaigns *handler.CampaignHandler
	codes     *handler.CodeHandler
	redeem    *handler.RedeemHandler
	parse     *handler.ParseHandler
	stats     *handler.StatsHandler
	apiKeys   *handler.APIKeyHandler
	admin     *handler.AdminHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	deps routerDeps,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		AllowedOrigins:     cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))

	// Health and ops endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Get("/metrics", deps.metrics.Metrics)

	// Root info endpoint
	r.Get("/", deps.base.Hello)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: repo,
		Cache:      cacheClient,
	}

	// Rate limit middleware configuration. Redis-backed when
	// available, in-process token buckets otherwise.
	var limiter cache.RateLimiter
	if cacheClient != nil {
		limiter = cacheClient
	} else {
		limiter = cache.NewMemoryLimiter()
	}
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       limiter,
		APIEnabled:    cfg.RateLimitAPIEnabled,
		RedeemEnabled: cfg.RateLimitRedeemEnabled,
		RedeemRPS:     cfg.RateLimitRedeemRPS,
		RedeemBurst:   cfg.RateLimitRedeemBurst,
	}

	// API v1 routes (require authentication)
	r.Route("/api/v1", func(r chi.Router) {
		// Apply auth and rate limit middleware to all API routes
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		// Campaign management (requires write scope for mutations)
		r.Route("/campaigns", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", deps.campaigns.List)
			r.With(middleware.RequireRead()).Get("/{id}", deps.campaigns.Get)
			r.With(middleware.RequireRead()).Get("/{id}/stats", deps.stats.CampaignStats)
			r.With(middleware.RequireWrite()).Post("/", deps.campaigns.Create)
			r.With(middleware.RequireWrite()).Patch("/{id}", deps.campaigns.Update)
			r.With(middleware.RequireAdmin()).Delete("/{id}", deps.campaigns.Delete)

			// Code batches live under their campaign
			r.With(middleware.RequireWrite()).Post("/{id}/codes", deps.codes.CreateBatch)
			r.With(middleware.RequireRead()).Get("/{id}/codes", deps.codes.List)
		})

		// Single-code lookup
		r.With(middleware.RequireRead()).Get("/codes/{id}", deps.codes.Get)

		// Landing-URL validation for integrators
		r.With(middleware.RequireRead()).Post("/parse", deps.parse.Validate)

		// API key management (requires admin scope for mutations)
		r.Route("/api-keys", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", deps.apiKeys.ListAPIKeys)
			r.With(middleware.RequireAdmin()).Post("/", deps.apiKeys.CreateAPIKey)
			r.With(middleware.RequireAdmin()).Delete("/{key_id}", deps.apiKeys.RevokeAPIKey)
			r.With(middleware.RequireAdmin()).Post("/{key_id}/rotate", deps.apiKeys.RotateAPIKey)
		})

		// Admin lookups
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/lookup", deps.admin.Lookup)
			r.Get("/api-keys", deps.admin.ListAPIKeysByUser)
			r.Get("/users/{id}", deps.admin.GetUser)
			r.Get("/stats", deps.admin.Stats)
		})
	})

	// Public redemption surface with IP-based rate limiting (no auth)
	r.Route("/redeem", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Get("/", deps.redeem.Preview)
		r.Post("/", deps.redeem.Redeem)
	})

	// 404 and 405 handlers
	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
