package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/radio-ops-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/radio-ops-platform/internal/http/middleware"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	LeadsHandler    *leads.Handler
	OutreachHandler *handlers.OutreachHandler
	MetricsHandler  http.Handler

	AdminAuthSecret    string
	ServiceToken       string
	CORSAllowedOrigins []string
	AdminRateLimit     float64
	AdminRateBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Operator routes (HMAC JWT; a station_id claim scopes the token to one station)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminRateLimit > 0 {
				admin.Use(httpmiddleware.RateLimit(cfg.AdminRateLimit, cfg.AdminRateBurst))
			}
			if cfg.LeadsHandler != nil {
				admin.Post("/leads", cfg.LeadsHandler.CreateLead)
				admin.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
			}
			if cfg.OutreachHandler != nil {
				admin.Route("/outreach", func(o chi.Router) {
					o.Get("/stats", cfg.OutreachHandler.Stats)
					o.Get("/events", cfg.OutreachHandler.ListEvents)
					o.Route("/leads/{leadID}", func(lead chi.Router) {
						lead.Post("/outbound", cfg.OutreachHandler.SendOutbound)
						lead.Post("/inbound", cfg.OutreachHandler.HandleInbound)
						lead.Post("/end", cfg.OutreachHandler.EndConversation)
						lead.Get("/conversation", cfg.OutreachHandler.GetConversation)
						lead.Post("/messages/{messageID}/redeliver", cfg.OutreachHandler.Redeliver)
					})
				})
			}
		})
	}

	// Internal relay: station services forward replies received on their own channels.
	if cfg.ServiceToken != "" && cfg.OutreachHandler != nil {
		r.Route("/internal", func(internal chi.Router) {
			internal.Use(requireServiceToken(cfg.ServiceToken))
			internal.Use(requireStationID)
			internal.Post("/outreach/leads/{leadID}/inbound", cfg.OutreachHandler.HandleInbound)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
