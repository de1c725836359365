// Package httpapi serves the setup pages, the config API, health and
// metrics endpoints, and the payment webhooks.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vpnstore/internal/config"
	"vpnstore/internal/domain"
	"vpnstore/internal/service"
)

// ConfigStore holds the app configuration document
type ConfigStore interface {
	Current() *config.AppConfig
	Ready() bool
	Save(cfg config.AppConfig) error
}

// Settler applies payment notifications to deposits
type Settler interface {
	Settle(ctx context.Context, n service.Notification) (*domain.Deposit, error)
}

// Server holds the HTTP handlers. Webhooks answer 503 until deposits are attached.
type Server struct {
	configs ConfigStore
	logger  *zap.Logger

	mu       sync.RWMutex
	deposits Settler
}

// NewServer creates the HTTP surface
func NewServer(configs ConfigStore, logger *zap.Logger) *Server {
	return &Server{configs: configs, logger: logger}
}

// AttachDeposits enables the webhooks once the database is open
func (s *Server) AttachDeposits(d Settler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits = d
}

func (s *Server) settler() Settler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deposits
}

// Router builds the chi router with every route mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/setup", s.handleSetupPage)
	r.Group(func(r chi.Router) {
		r.Use(s.requireKey)
		r.Get("/config/edit", s.handleEditPage)
		r.Get("/api/config", s.handleGetConfig)
		r.Post("/api/config", s.handleSaveConfig)
	})

	r.Post("/webhook/gateway", s.handleGatewayWebhook)
	r.Post("/webhook/qris", s.handleQRISWebhook)
	return r
}

// NewHTTPServer wraps handler with the timeouts used in production
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"configured": s.configs.Ready(),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			s.logger.Debug("HTTP request", fields...)
			return
		}
		s.logger.Info("HTTP request", fields...)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
