// Package server wires the HTTP surface of rotomd: the login flow, the
// static pages, and the JSON API over the app registry and scanner.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"rotomdex/rotomd/internal/config"
	"rotomdex/rotomd/internal/creds"
	"rotomdex/rotomd/internal/ratelimit"
	"rotomdex/rotomd/internal/registry"
	"rotomdex/rotomd/internal/scan"
	"rotomdex/rotomd/internal/sessions"
	"rotomdex/rotomd/internal/web"
	"rotomdex/rotomd/pkg/httpx"
)

// Login throttle: fixed window per client IP.
const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

type Server struct {
	cfg      config.Config
	logger   *zerolog.Logger
	creds    *creds.Store
	sessions *sessions.Store
	registry *registry.Store
	scanner  *scan.Scanner
	limiter  *ratelimit.Store
	cookies  *cookieCodec
	metrics  *metrics

	totp pendingTOTP
}

func New(
	cfg config.Config,
	logger *zerolog.Logger,
	cs *creds.Store,
	ss *sessions.Store,
	reg *registry.Store,
	sc *scan.Scanner,
	rl *ratelimit.Store,
) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		creds:    cs,
		sessions: ss,
		registry: reg,
		scanner:  sc,
		limiter:  rl,
		cookies:  newCookieCodec(cfg.SessionSecret, cfg.Production),
		metrics:  newMetrics(),
	}
}

// Routes assembles the router with the ambient middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger())
	r.Use(s.metrics.countRequests)
	r.Use(securityHeaders)

	// Dev CORS for a frontend dev server; same-origin in production.
	if !s.cfg.Production {
		c := cors.New(cors.Options{
			AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		})
		r.Use(c.Handler)
	}

	// Public surface
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, map[string]string{"version": s.cfg.Version()})
	})
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, map[string]any{"ok": true, "version": s.cfg.Version()})
	})

	// Everything else needs a live session.
	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)

		pr.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			web.ServeDashboard(w)
		})
		pr.Get("/api/apps", s.handleApps)
		pr.Get("/api/status", s.handleStatus)
		pr.Get("/api/scan-github", s.handleScan)
		pr.Post("/api/auth/totp/setup", s.handleTOTPSetup)
		pr.Get("/api/auth/totp/qr", s.handleTOTPQR)
		pr.Post("/api/auth/totp/confirm", s.handleTOTPConfirm)
		pr.Method(http.MethodGet, "/metrics", s.metrics.handler())
	})

	return r
}
