// Package router assembles the HTTP surface of the OPD platform.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/healthsched/opd-platform/internal/appointments"
	httpmiddleware "github.com/healthsched/opd-platform/internal/http/middleware"
	"github.com/healthsched/opd-platform/internal/prebook"
	"github.com/healthsched/opd-platform/internal/sites"
	"github.com/healthsched/opd-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	SitesHandler        *sites.Handler
	PrebookHandler      *prebook.Handler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// BookingRatePerSecond throttles the public booking surface per IP.
	// Zero disables rate limiting.
	BookingRatePerSecond float64
	BookingRateBurst     int
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: booking, duplicate check, window listing, prebook.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(public chi.Router) {
		if cfg.BookingRatePerSecond > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.BookingRatePerSecond, cfg.BookingRateBurst))
		}
		if cfg.AppointmentsHandler != nil {
			public.Group(cfg.AppointmentsHandler.Routes)
		}
		if cfg.SitesHandler != nil {
			public.Group(cfg.SitesHandler.Routes)
		}
		if cfg.PrebookHandler != nil {
			public.Group(cfg.PrebookHandler.Routes)
		}
	})

	// Admin endpoints: delay propagation, prescriptions, deletes, listings,
	// site configuration.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AppointmentsHandler != nil {
				admin.Group(cfg.AppointmentsHandler.AdminRoutes)
			}
			if cfg.SitesHandler != nil {
				admin.Group(cfg.SitesHandler.AdminRoutes)
			}
		})
	}

	return r
}
