// Package server exposes the manager state over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/metrics"
	"codeberg.org/mutker/opratectl/internal/oprate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 120 * time.Second
)

// StatusProvider reports the current manager state.
type StatusProvider interface {
	Status() oprate.Status
}

// Server serves /status and /health, plus /decisions and /metrics when
// their sources are given.
type Server struct {
	router  chi.Router
	addr    string
	status  StatusProvider
	history metrics.History
	metrics http.Handler
	logger  logger.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New builds a server listening on addr. history and metricsHandler may be nil.
func New(addr string, status StatusProvider, history metrics.History, metricsHandler http.Handler, log logger.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		addr:    addr,
		status:  status,
		history: history,
		metrics: metricsHandler,
		logger:  log,
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.NotFound(s.notFound)
	s.router.MethodNotAllowed(s.methodNotAllowed)

	s.registerRoutes()

	return s
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	errFactory := errors.New()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errFactory.Wrap(ErrServerStart, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the server. It is a no-op before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return errors.New().Wrap(ErrServerShutdown, err)
	}
	return nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusNotFound, "not_found", "Resource not found")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorWithCode(errors.New().Wrap(ErrEncodeResponse, err)).Msg("Failed to write response")
	}
}
