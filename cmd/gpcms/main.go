// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/greenpower-cms/internal/analytics"
	"github.com/olegiv/greenpower-cms/internal/cache"
	"github.com/olegiv/greenpower-cms/internal/config"
	"github.com/olegiv/greenpower-cms/internal/geoip"
	"github.com/olegiv/greenpower-cms/internal/handler"
	"github.com/olegiv/greenpower-cms/internal/handler/api"
	"github.com/olegiv/greenpower-cms/internal/logging"
	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/scheduler"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/session"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "gpcms - GreenPower admin CMS backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GPCMS_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GPCMS_DB_PATH          SQLite database path (default: ./data/greenpower.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GPCMS_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GPCMS_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GPCMS_UPLOADS_DIR      Uploaded media directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GPCMS_REDIS_URL        Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GPCMS_GEOIP_DB_PATH    GeoLite2 country database (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("gpcms %s\n", version.Current())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Mirror WARN and ERROR records into the activity log.
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.SeedAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seeding admin user: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	appCache := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTLDuration(),
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = appCache.Close() }()

	var geo *geoip.Lookup
	if cfg.GeoIPEnabled() {
		geo, err = geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			slog.Warn("geoip database unavailable, countries disabled", "error", err, "path", cfg.GeoIPDBPath)
		} else {
			defer func() { _ = geo.Close() }()
			slog.Info("geoip database loaded", "path", cfg.GeoIPDBPath)
		}
	}
	tracker := analytics.NewTracker(analytics.DefaultCapacity, geo)

	schedOpts := scheduler.Options{EventRetentionDays: cfg.EventRetentionDays}
	if geo != nil {
		schedOpts.GeoIP = geo
	}
	sched := scheduler.New(db, logger, schedOpts)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Services
	eventService := service.NewEventService(db)
	pageService := service.NewPageService(db, appCache, cfg.CacheTTLDuration())
	mediaService := service.NewMediaService(db, cfg.UploadsDir)
	reportService := service.NewReportService(db, eventService)
	analyticsService := service.NewAnalyticsService(db, tracker, appCache)

	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestInfo)
	r.Use(tracker.Middleware)
	r.Use(sessionManager.LoadAndSave)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig(
		[]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.TrustedOrigins...))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	apiRateLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst)
	slog.Info("API rate limiter initialized", "rate", cfg.APIRateLimit, "burst", cfg.APIRateBurst)

	// Handlers
	authHandler := handler.NewAuthHandler(db, sessionManager, loginProtection, eventService)
	usersHandler := handler.NewUsersHandler(db, eventService)
	rolesHandler := handler.NewRolesHandler(db)
	projectsHandler := handler.NewProjectsHandler(db, eventService)
	mediaHandler := handler.NewMediaHandler(db, mediaService, eventService)
	pagesHandler := handler.NewPagesHandler(db, pageService, eventService)
	reportsHandler := handler.NewReportsHandler(db, reportService, eventService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	backupsHandler := handler.NewBackupsHandler(db, eventService)
	activityHandler := handler.NewActivityHandler(db)
	healthHandler := handler.NewHealthHandler(db, appCache, cfg.UploadsDir)
	systemHandler := handler.NewSystemHandler(appCache, sched.Registry(), eventService)
	apiHandler := api.NewHandler(pageService, service.NewSearchService(db))

	// Health check routes (public)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Auth routes
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.With(loginProtection.Middleware).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.Auth(sessionManager), middleware.LoadUser(sessionManager, db)).Get("/me", authHandler.Me)
	})

	// Admin routes
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))

		// Content routes (author and above)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAuthor, eventService))

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectsHandler.List)
				r.Post("/", projectsHandler.Create)
				r.Get("/{id}", projectsHandler.Get)
				r.Put("/{id}", projectsHandler.Update)
				r.Delete("/{id}", projectsHandler.Delete)
			})

			r.Route("/media", func(r chi.Router) {
				r.Get("/", mediaHandler.List)
				r.Post("/", mediaHandler.Upload)
				r.Get("/{id}", mediaHandler.Get)
				r.Get("/{id}/download", mediaHandler.Download)
				r.Put("/{id}", mediaHandler.Update)
				r.Delete("/{id}", mediaHandler.Delete)
			})

			r.Route("/pages", func(r chi.Router) {
				r.Get("/", pagesHandler.List)
				r.Post("/", pagesHandler.Create)
				r.Get("/{id}", pagesHandler.Get)
				r.Put("/{id}", pagesHandler.Update)
				r.Delete("/{id}", pagesHandler.Delete)
				r.Post("/{id}/publish", pagesHandler.TogglePublish)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", reportsHandler.List)
				r.Post("/", reportsHandler.Create)
				r.Get("/{id}", reportsHandler.Get)
				r.Put("/{id}", reportsHandler.Update)
				r.Delete("/{id}", reportsHandler.Delete)
				r.Post("/{id}/run", reportsHandler.Run)
			})
		})

		// Administration routes (admin and above)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin, eventService))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", usersHandler.List)
				r.Post("/", usersHandler.Create)
				r.Post("/bulk", usersHandler.Bulk)
				r.Get("/{id}", usersHandler.Get)
				r.Put("/{id}", usersHandler.Update)
				r.Delete("/{id}", usersHandler.Delete)
			})
			r.Get("/roles", rolesHandler.List)

			r.Route("/backups", func(r chi.Router) {
				r.Get("/", backupsHandler.List)
				r.Post("/", backupsHandler.Create)
				r.Get("/{id}", backupsHandler.Get)
				r.Put("/{id}/status", backupsHandler.UpdateStatus)
				r.Delete("/{id}", backupsHandler.Delete)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/system-usage", analyticsHandler.SystemUsage)
				r.Get("/performance", analyticsHandler.Performance)
				r.Get("/realtime", analyticsHandler.Realtime)
				r.Get("/export", analyticsHandler.Export)
			})

			r.Get("/activity", activityHandler.List)

			r.Route("/system", func(r chi.Router) {
				r.Get("/health", healthHandler.System)
				r.Get("/cache", systemHandler.CacheStats)
				r.Delete("/cache", systemHandler.ClearCache)
				r.Get("/jobs", systemHandler.Jobs)
				r.Put("/jobs/{name}", systemHandler.UpdateJobSchedule)
				r.Post("/jobs/{name}/run", systemHandler.TriggerJob)
			})
		})
	})

	// Public read-only API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiRateLimiter.Middleware)
		r.Get("/status", apiHandler.Status)
		r.Get("/pages", apiHandler.ListPages)
		r.Get("/pages/{slug}", apiHandler.GetPage)
		r.Get("/search", apiHandler.Search)
	})
	slog.Info("REST API v1 mounted at /api/v1")

	// Uploaded media, sandboxed and cached for 1 week
	uploadsHandler := middleware.SecurityHeaders(middleware.UploadsSecurityHeadersConfig(cfg.IsDevelopment()))(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	r.Handle("/uploads/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=604800")
		uploadsHandler.ServeHTTP(w, req)
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSONError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // large uploads
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
