// Package web is the thin presenter boundary: it exposes the day-grouped
// event structure read-only over HTTP and performs no business logic of its
// own.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"daycal/internal/config"
	appLog "daycal/internal/log"
	"daycal/internal/model"
	"daycal/internal/pipeline"
)

// cacheTTL bounds how stale a served grouping may be between scheduled
// refreshes.
const cacheTTL = 5 * time.Minute

// Server provides the HTTP API for the grouped day feed.
type Server struct {
	cfg *config.Config
	loc *time.Location
	mux *http.ServeMux

	// In-memory cache of the last pass so every HTTP request does not
	// re-read and re-parse the sources.
	mu    sync.RWMutex
	cache *daysCache
}

// daysResponse is the JSON shape for /api/days: the grouped structure plus
// the flat totals a presenter needs for its summary line.
type daysResponse struct {
	Days        model.EventGroup `json:"days"`
	Dates       []string         `json:"dates"`
	TotalEvents int              `json:"total_events"`
	Skipped     int              `json:"skipped"`
	Timezone    string           `json:"timezone"`
	GeneratedAt time.Time        `json:"generated_at"`
}

type daysCache struct {
	resp      daysResponse
	updatedAt time.Time
}

// NewServer constructs a Server normalizing into loc.
func NewServer(cfg *config.Config, loc *time.Location) *Server {
	s := &Server{
		cfg: cfg,
		loc: loc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/days", s.handleDays)
}

// Handler returns the server's http.Handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Treat empty username or password as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="daycal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleDays serves the grouped day feed. A pass with zero events is a normal
// 200 with an empty map; an unavailable source is a 502 — the two are never
// conflated.
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	s.mu.RLock()
	c := s.cache
	s.mu.RUnlock()
	if c != nil && now.Sub(c.updatedAt) < cacheTTL {
		writeJSON(w, http.StatusOK, c.resp)
		return
	}

	resp, err := s.rebuild(r.Context())
	if err != nil {
		appLog.Error("day feed rebuild failed", err)
		writeError(w, http.StatusBadGateway, "source unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refresh runs a pass immediately and replaces the cache. The cron scheduler
// calls this on the configured interval.
func (s *Server) Refresh(ctx context.Context) error {
	_, err := s.rebuild(ctx)
	return err
}

func (s *Server) rebuild(ctx context.Context) (daysResponse, error) {
	res, err := pipeline.Build(ctx, s.cfg, s.loc, time.Now().In(s.loc))
	if err != nil {
		return daysResponse{}, err
	}

	resp := daysResponse{
		Days:        res.Days,
		Dates:       res.Days.Dates(),
		TotalEvents: len(res.Events),
		Skipped:     res.Report.Skipped,
		Timezone:    s.loc.String(),
		GeneratedAt: res.GeneratedAt,
	}

	s.mu.Lock()
	s.cache = &daysCache{resp: resp, updatedAt: time.Now()}
	s.mu.Unlock()

	return resp, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
