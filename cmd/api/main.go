// Package main is the entrypoint for the phoebe API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/cache"
	"github.com/phoebe/phoebe/internal/config"
	"github.com/phoebe/phoebe/internal/handler"
	"github.com/phoebe/phoebe/internal/metrics"
	"github.com/phoebe/phoebe/internal/middleware"
	"github.com/phoebe/phoebe/internal/ratelimit"
	"github.com/phoebe/phoebe/internal/repository"
	"github.com/phoebe/phoebe/internal/server"
	"github.com/phoebe/phoebe/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Config{
		PrincipalTTL: cfg.PrincipalCacheTTL,
		HomepageTTL:  cfg.HomepageCacheTTL,
	})
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.MaxKeys = cfg.RateLimitMaxKeys
	limiterCfg.IdleTTL = cfg.RateLimitIdleTTL
	limiter, err := ratelimit.New(limiterCfg)
	if err != nil {
		logger.Error("failed to create rate limiter", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry)

	// Services
	authService := service.NewAuthService(repo, cacheClient, tokens, []byte(cfg.JWTSecret), recorder, logger)
	userService := service.NewUserService(repo, repo, authService, logger)
	roleService := service.NewRoleService(repo, repo, repo, authService, logger)
	termService := service.NewTermService(repo, cacheClient, logger)
	newsService := service.NewNewsService(repo, repo, cacheClient, recorder, logger)
	homepageService := service.NewHomepageService(repo, repo, repo, cacheClient, recorder, logger)
	channelService := service.NewChannelSettingsService(repo, repo, logger)

	deps := routerDeps{
		cfg:      cfg,
		logger:   logger,
		limiter:  limiter,
		recorder: recorder,
		gatherer: registry,
		resolver: authService,
		health:   handler.NewHealthHandler(repo, cacheClient),
		auth:     handler.NewAuthHandler(authService, logger),
		users:    handler.NewUserHandler(userService, logger),
		roles:    handler.NewRoleHandler(roleService, logger),
		terms:    handler.NewTermHandler(termService, logger),
		news:     handler.NewNewsHandler(newsService, logger),
		homepage: handler.NewHomepageHandler(homepageService, logger),
		channel:  handler.NewChannelHandler(channelService, logger),
	}

	srv := server.New(setupRouter(deps), server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"rate_limit_enabled", cfg.RateLimitEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "phoebe")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps carries everything setupRouter wires together.
type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	limiter  *ratelimit.Limiter
	recorder metrics.Recorder
	gatherer prometheus.Gatherer
	resolver middleware.PrincipalResolver

	health   *handler.HealthHandler
	auth     *handler.AuthHandler
	users    *handler.UserHandler
	roles    *handler.RoleHandler
	terms    *handler.TermHandler
	news     *handler.NewsHandler
	homepage *handler.HomepageHandler
	channel  *handler.ChannelHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	h := handler.New()
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = d.cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	// Operational endpoints
	r.Get("/", h.Root)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Method("GET", "/metrics", handler.NewMetricsHandler(d.gatherer))

	guards := middleware.Guards{Logger: d.logger, Metrics: d.recorder}
	id := middleware.ValidateIDParam("id")

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Logger:  d.logger,
			Limiter: d.limiter,
			Metrics: d.recorder,
			Enabled: d.cfg.RateLimitEnabled,
		}))
		r.Use(middleware.Authenticate(middleware.AuthConfig{
			Logger:   d.logger,
			Resolver: d.resolver,
		}))
		r.Route("/public", func(r chi.Router) {
			r.Get("/news", d.news.PublicList)
			r.Get("/news/search", d.news.PublicSearch)
			r.With(middleware.ValidateIDParam("termId")).Get("/news/term/{termId}", d.news.PublicByTerm)
			r.With(id).Get("/news/{id}", d.news.PublicGet)
			r.Get("/terms", d.terms.List)
			r.Get("/homepage", d.homepage.Public)
			r.Get("/homepage/mode", d.homepage.GetMode)
			r.Get("/channel-settings", d.channel.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RequireJSON).Post("/auth/login", d.auth.Login)

			// Staff: ADMIN or EDITOR
			r.Group(func(r chi.Router) {
				r.Use(guards.RequireStaff())
				r.Use(middleware.RequireJSON)

				r.Get("/auth/me", d.auth.Me)

				r.Get("/news", d.news.List)
				r.Post("/news", d.news.Create)
				r.With(id).Get("/news/{id}", d.news.Get)
				r.With(id).Put("/news/{id}", d.news.Update)
				r.With(id).Delete("/news/{id}", d.news.Delete)

				r.Get("/terms", d.terms.List)
				r.With(id).Get("/terms/{id}", d.terms.Get)
			})

			// ADMIN only
			r.Group(func(r chi.Router) {
				r.Use(guards.RequireAdmin())
				r.Use(middleware.RequireJSON)

				r.Post("/news/bulk", d.news.Bulk)

				r.Post("/terms", d.terms.Create)
				r.With(id).Put("/terms/{id}", d.terms.Update)
				r.With(id).Delete("/terms/{id}", d.terms.Delete)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", d.users.List)
					r.Post("/", d.users.Create)
					r.With(id).Get("/{id}", d.users.Get)
					r.With(id).Put("/{id}", d.users.Update)
					r.With(id).Delete("/{id}", d.users.Delete)
				})

				r.Route("/roles", func(r chi.Router) {
					r.Get("/", d.roles.List)
					r.Post("/", d.roles.Create)
					r.With(middleware.ValidateIDParam("userId")).Get("/user/{userId}", d.roles.ListByUser)
					r.With(id).Get("/{id}", d.roles.Get)
					r.With(id).Put("/{id}", d.roles.Update)
					r.With(id).Delete("/{id}", d.roles.Delete)
				})

				r.Get("/permissions", d.roles.ListPermissions)
				r.With(id).Get("/permissions/{id}", d.roles.GetPermission)

				r.Route("/homepage-blocks", func(r chi.Router) {
					r.Get("/", d.homepage.ListBlocks)
					r.Post("/", d.homepage.CreateBlock)
					r.With(id).Get("/{id}", d.homepage.GetBlock)
					r.With(id).Put("/{id}", d.homepage.UpdateBlock)
					r.With(id).Delete("/{id}", d.homepage.DeleteBlock)
				})
				r.Get("/homepage/mode", d.homepage.GetMode)
				r.Patch("/homepage/mode", d.homepage.SetMode)

				r.Get("/channel-settings", d.channel.Get)
				r.Put("/channel-settings", d.channel.Update)
			})
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

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
