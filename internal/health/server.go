// Package health serves liveness, readiness, status and Prometheus metrics
// endpoints for the update agent.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Readiness status values.
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

// HealthChecker returns an error if a component is not ready.
type HealthChecker func(ctx context.Context) error

// DegradedChecker reports whether a component is working but impaired,
// such as the updater waiting out a provider-requested pause.
type DegradedChecker func(ctx context.Context) (degraded bool, message string)

// StatusFunc returns a JSON-encodable snapshot for the /status endpoint.
type StatusFunc func() any

// HealthStatus represents the health status of a component.
type HealthStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// DegradedStatus represents a degraded component.
type DegradedStatus struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Response represents a health check response.
type Response struct {
	Status     string           `json:"status"`
	Components []HealthStatus   `json:"components,omitempty"`
	Degraded   []DegradedStatus `json:"degraded,omitempty"`
}

// Server provides /health, /ready, /status and /metrics endpoints.
type Server struct {
	port     int
	mux      *http.ServeMux
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	timeout  time.Duration
	status   StatusFunc

	mu               sync.RWMutex
	checkers         map[string]HealthChecker
	degradedCheckers map[string]DegradedChecker
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTimeout sets the timeout for readiness checks.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.timeout = timeout
	}
}

// WithStatus enables the /status endpoint.
func WithStatus(fn StatusFunc) Option {
	return func(s *Server) {
		s.status = fn
	}
}

// New creates a server for the given port. Port 0 picks a free port.
func New(port int, opts ...Option) *Server {
	s := &Server{
		port:             port,
		mux:              http.NewServeMux(),
		logger:           slog.Default(),
		timeout:          5 * time.Second,
		checkers:         make(map[string]HealthChecker),
		degradedCheckers: make(map[string]DegradedChecker),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// RegisterChecker adds a readiness checker.
func (s *Server) RegisterChecker(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	s.logger.Debug("registered health checker", slog.String("name", name))
}

// RegisterDegradedChecker adds a degraded state checker for /ready.
func (s *Server) RegisterDegradedChecker(name string, checker DegradedChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degradedCheckers[name] = checker
	s.logger.Debug("registered degraded checker", slog.String("name", name))
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make(map[string]HealthChecker, len(s.checkers))
	for name, checker := range s.checkers {
		checkers[name] = checker
	}
	degradedCheckers := make(map[string]DegradedChecker, len(s.degradedCheckers))
	for name, checker := range s.degradedCheckers {
		degradedCheckers[name] = checker
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	resp := Response{Status: StatusReady}
	code := http.StatusOK

	for _, name := range sortedKeys(checkers) {
		status := HealthStatus{Name: name, Healthy: true}
		if err := checkers[name](ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
			resp.Status = StatusNotReady
			code = http.StatusServiceUnavailable
			s.logger.Debug("readiness check failed",
				slog.String("component", name),
				slog.String("error", err.Error()),
			)
		}
		resp.Components = append(resp.Components, status)
	}

	for _, name := range sortedKeys(degradedCheckers) {
		if degraded, message := degradedCheckers[name](ctx); degraded {
			resp.Degraded = append(resp.Degraded, DegradedStatus{Name: name, Message: message})
		}
	}
	// Degraded is still functional, so it keeps 200.
	if resp.Status == StatusReady && len(resp.Degraded) > 0 {
		resp.Status = StatusDegraded
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Start binds the port and serves in a goroutine.
// Bind errors are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", s.port, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("health server starting", slog.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
