package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jadonwu-dev/axwise/internal/analysis"
	"github.com/jadonwu-dev/axwise/internal/history"
	httpmiddleware "github.com/jadonwu-dev/axwise/internal/http/middleware"
	"github.com/jadonwu-dev/axwise/internal/proxy"
	"github.com/jadonwu-dev/axwise/internal/simulation"
	"github.com/jadonwu-dev/axwise/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger            *logging.Logger
	ProxyHandler      *proxy.Handler
	AnalysisHandler   *analysis.Handler
	SimulationHandler *simulation.Handler
	HistoryHandler    *history.Handler
	MetricsHandler    http.Handler

	Auth               httpmiddleware.AuthConfig
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all gateway routes configured.
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
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints.
	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API surface, mirroring the backend's path space.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.BearerAuth(cfg.Auth))

		if cfg.AnalysisHandler != nil {
			// Registered ahead of the generic relay so analysis results get
			// the sentiment fallback treatment.
			api.Get("/research/sessions/{sessionID}/analysis", cfg.AnalysisHandler.GetResults)
		}
		if cfg.SimulationHandler != nil {
			api.Mount("/research/simulation-bridge", cfg.SimulationHandler.Routes())
		}
		if cfg.HistoryHandler != nil {
			api.Get("/analysis-runs", cfg.HistoryHandler.ListRuns)
		}
		if cfg.ProxyHandler != nil {
			// Catch-all relay for the remaining research endpoints.
			api.Mount("/", cfg.ProxyHandler.Routes())
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"axwise-gateway"}`))
}
