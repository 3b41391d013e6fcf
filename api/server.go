/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Heartbeat:  GET /health liveness probe, unauthenticated
                (GET /ready pings the store, also unauthenticated)
  2. CORS:       Cross-origin requests for the portal frontend
  3. httplog:    Structured request logging (ECS schema)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. RequestID:  Unique ID per request for tracing
  6. jwtauth:    Bearer token verification on /api

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	JWTAuth     *jwtauth.JWTAuth
	Logger      *slog.Logger
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Heartbeat("/health"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false, // bearer tokens only, no cookies
		MaxAge:           300,
	}))
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/ready", h.Readiness)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jwtauth.Verifier(cfg.JWTAuth))
		r.Use(jwtauth.Authenticator(cfg.JWTAuth))

		// Leave routes
		r.Route("/leave-requests", func(r chi.Router) {
			r.Post("/", h.SubmitLeave)
			r.Get("/{id}", h.GetLeave)
			r.Post("/{id}/decision", h.DecideLeave)
			r.Post("/{id}/cancel", h.CancelLeave)
		})
		r.Get("/approvals/pending", h.ListPendingApprovals)

		// Regularization routes
		r.Route("/regularizations", func(r chi.Router) {
			r.Post("/", h.SubmitRegularization)
			r.Get("/{id}", h.GetRegularization)
			r.Post("/{id}/decision", h.DecideRegularization)
			r.Post("/{id}/cancel", h.CancelRegularization)
		})

		// Employee routes
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/leave-requests", h.ListEmployeeLeave)
			r.Get("/regularizations", h.ListEmployeeRegularizations)
			r.Get("/balance", h.GetBalance)
			r.Put("/balance", h.SetBalance)
			r.Get("/attendance", h.GetAttendance)
			r.Get("/approver", h.GetApprover)
		})

		// Attendance routes
		r.Post("/attendance/clock", h.Clock)
		r.Get("/shifts", h.GetShift)
	})

	return r
}
