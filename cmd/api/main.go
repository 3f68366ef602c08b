package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthsched/opd-platform/internal/api/router"
	"github.com/healthsched/opd-platform/internal/app/bootstrap"
	"github.com/healthsched/opd-platform/internal/appointments"
	appconfig "github.com/healthsched/opd-platform/internal/config"
	"github.com/healthsched/opd-platform/internal/notify"
	"github.com/healthsched/opd-platform/internal/observability/metrics"
	"github.com/healthsched/opd-platform/internal/prebook"
	"github.com/healthsched/opd-platform/internal/scheduling"
	"github.com/healthsched/opd-platform/internal/sites"
	"github.com/healthsched/opd-platform/pkg/logging"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting opd-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres holds appointments and the token counter
	pool, err := bootstrap.BuildDBPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis holds site configuration and pre-booking intents
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for site config and prebook intents")
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	// Metrics
	schedulingMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	// Repositories and services
	repo := appointments.NewRepository(pool)
	tokens := appointments.NewSequenceIssuer(pool, cfg.CounterName)
	siteStore := sites.NewStore(redisClient)
	prebookStore := prebook.NewStore(redisClient, cfg.PrebookTTL)

	emailSender := bootstrap.BuildEmailSender(ctx, cfg, logger)
	notifier := notify.NewService(emailSender, siteStore, logger)

	params := scheduling.Params{
		ArrivalBuffer: cfg.ArrivalBufferMinutes,
		MinSpacing:    cfg.MinSpacingMinutes,
	}
	service := appointments.NewService(repo, tokens, notifier, schedulingMetrics, logger, params, cfg.AllowedDelayMinutes)

	// Initialize handlers
	appointmentsHandler := appointments.NewHandler(service, logger, siteStore)
	sitesHandler := sites.NewHandler(siteStore, logger)
	prebookHandler := prebook.NewHandler(prebookStore, logger)

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set, admin routes will reject all requests")
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:               logger,
		AppointmentsHandler:  appointmentsHandler,
		SitesHandler:         sitesHandler,
		PrebookHandler:       prebookHandler,
		AdminAuthSecret:      cfg.AdminJWTSecret,
		MetricsHandler:       promhttp.Handler(),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		BookingRatePerSecond: cfg.BookingRatePerSecond,
		BookingRateBurst:     cfg.BookingRateBurst,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
