package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmtools/internal/logging"
)

// ErrServerRunning is returned by Start on a running server.
var ErrServerRunning = errors.New("metrics server already running")

// Server represents the metrics HTTP server
type Server struct {
	addr     string
	path     string
	registry *Registry

	mu       sync.Mutex // protects server and listener
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a new metrics server with the provided registry
func NewServer(addr, path string, registry *Registry) *Server {
	if path == "" {
		path = "/metrics"
	}
	if addr == "" {
		addr = ":9090"
	}
	return &Server{
		addr:     addr,
		path:     path,
		registry: registry,
	}
}

// Handler returns the HTTP handler serving metrics and health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrServerRunning
	}
	if s.registry == nil {
		return fmt.Errorf("metrics registry not provided")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start metrics server on %s: %w", s.addr, err)
	}

	srv := &http.Server{Handler: s.Handler()}
	s.server = srv
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.MetricsError("metrics server stopped: %v", err)
		}
	}()

	logging.Metrics("metrics server listening on %s%s", ln.Addr(), s.path)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}

// Address returns the bound metrics URL, or "" when stopped.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s%s", s.listener.Addr(), s.path)
}
