// Package api provides the HTTP server for staffxp.
// It exposes the gamification engine as a JSON API plus a websocket feed of
// action results.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hotelops/staffxp/internal/app/engagement"
	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/health"
)

// Version is reported by /api/version. Overridden at build time.
var Version = "0.1.0"

// Options tunes the HTTP layer.
type Options struct {
	ActionsPerMinute int      // per user; 0 disables rate limiting
	CORSOrigins      []string // "*" allows any origin
}

// Server is the staffxp HTTP API server.
type Server struct {
	engine         *engagement.Engine
	hub            *Hub
	health         *health.Checker
	limiter        *userLimiter
	validate       *validator.Validate
	origins        []string
	metricsEnabled bool
	log            zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(eng *engagement.Engine, opts Options, log zerolog.Logger) *Server {
	log = log.With().Str("component", "api").Logger()
	s := &Server{
		engine:   eng,
		hub:      NewHub(opts.CORSOrigins, log),
		validate: validator.New(),
		origins:  opts.CORSOrigins,
		log:      log,
	}
	if opts.ActionsPerMinute > 0 {
		s.limiter = newUserLimiter(opts.ActionsPerMinute)
	}
	return s
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth sets the checker reported on /health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// Hub returns the websocket hub (for closing on shutdown).
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Websocket upgrades must not sit behind the timeout middleware.
	r.Get("/api/events", s.hub.HandleEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Route("/api/users/{userID}", func(r chi.Router) {
			r.Post("/actions", s.handlePerformAction)
			r.Get("/stats", s.handleStats)
			r.Get("/summary", s.handleSummary)
			r.Get("/level", s.handleLevel)
			r.Get("/rank", s.handleRank)
			r.Get("/badges", s.handleBadges)
			r.Get("/challenges", s.handleChallenges)
		})

		r.Get("/api/catalog", s.handleCatalog)
		r.Get("/api/catalog/badges/{badgeID}", s.handleCatalogBadge)
		r.Get("/api/leaderboard", s.handleLeaderboard)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

// writeDomainError maps engine errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrBadgeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engagement.ErrLeaderboardUnsupported):
		status = http.StatusNotImplemented
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusNotImplemented:
		return "not_implemented"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	return "error"
}

// corsMiddleware adds CORS headers for the configured origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := allowedOrigin(s.origins, r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when it is not allowed.
func allowedOrigin(origins []string, origin string) string {
	if slices.Contains(origins, "*") {
		return "*"
	}
	if origin != "" && slices.ContainsFunc(origins, func(o string) bool {
		return strings.EqualFold(strings.TrimRight(o, "/"), origin)
	}) {
		return origin
	}
	return ""
}

// requestLogger logs one line per request at debug level, errors at warn.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			ev := log.Debug()
			if ww.Status() >= 500 {
				ev = log.Warn()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
