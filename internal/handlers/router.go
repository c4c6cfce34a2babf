package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"trainmystery/internal/config"
	localMiddleware "trainmystery/internal/middleware"
)

// RouterOptions allows customization of router setup for tests
type RouterOptions struct {
	DisableRateLimiting  bool
	DisableRequestLogger bool
	CustomMiddleware     []func(http.Handler) http.Handler
}

// SetupRouter creates the application router with all routes and middleware
func SetupRouter(h *Handler, cfg *config.ServerConfig, opts *RouterOptions) *chi.Mux {
	if opts == nil {
		opts = &RouterOptions{}
	}

	r := chi.NewRouter()

	// Chi's built-in middleware (conditionally applied)
	if !opts.DisableRequestLogger {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Our custom middleware
	r.Use(localMiddleware.RequestSizeLimiter(cfg.Server.MaxRequestSize))
	r.Use(localMiddleware.SecurityHeaders())

	if !opts.DisableRateLimiting {
		rateLimiter := localMiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
	}

	for _, mw := range opts.CustomMiddleware {
		r.Use(mw)
	}

	// SSE streams are long lived and skip the request timeout
	r.Get("/sse/env/{env}", ValidateSSERequest(h.StreamEnvironment))

	r.Group(func(r chi.Router) {
		timeout := cfg.Server.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		r.Use(middleware.Timeout(timeout))
		r.Use(localMiddleware.RequireJSON())

		r.Get("/roles", h.ListRoles)
		r.Get("/modes", h.ListModes)
		r.Get("/env", h.ListEnvironments)

		r.Route("/env/{env}", func(r chi.Router) {
			r.Get("/", h.Snapshot)
			r.Post("/start", h.StartRound)
			r.Post("/stop", h.StopRound)
			r.Post("/forced-roles", h.ForceRole)
			r.Get("/roles", h.EnvironmentRoles)
			r.Post("/roles/{role}/enabled", h.SetRoleEnabled)
			r.Post("/killers/count", h.SetKillerCount)
			r.Post("/killers/ratio", h.SetKillerRatio)
			r.Post("/autostart", h.ConfigureAutoStart)
			r.Get("/settings", h.Settings)
			r.Post("/settings", h.UpdateSettings)
			r.Post("/vote", h.SetVote)

			r.Post("/participants", h.Join)
			r.Delete("/participants/{id}", h.Leave)
			r.Post("/participants/{id}/move", h.Move)
			r.Post("/participants/{id}/kill", h.Kill)
			r.Post("/participants/{id}/opt-out", h.OptOut)
			r.Get("/participants/{id}/result", h.Result)
		})
	})

	// Health check endpoints (no auth required)
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if h.runner == nil || len(h.runner.Environments()) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Simulation not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
