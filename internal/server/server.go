// Package server exposes livegate's HTTP surface: the WebSub verification
// handshake, the push-notification endpoint, health, and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/livegate/internal/pipeline"
	"github.com/mattjoyce/livegate/internal/websub"
)

// DefaultMaxBodySize caps inbound webhook bodies when unconfigured.
const DefaultMaxBodySize = 1048576 // 1 MB

// Processor runs the notification pipeline for one delivery.
type Processor interface {
	Process(ctx context.Context, header http.Header, body []byte) pipeline.Outcome
}

// ChallengeValidator validates the hub's GET verification handshake.
type ChallengeValidator interface {
	Validate(ctx context.Context, query url.Values) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Listen      string
	MaxBodySize int64
}

// Server is the webhook HTTP server.
type Server struct {
	config    Config
	processor Processor
	validator ChallengeValidator
	registry  *prometheus.Registry
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new server instance. registry may be nil to disable the
// /metrics endpoint.
func New(config Config, processor Processor, validator ChallengeValidator, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	return &Server{
		config:    config,
		processor: processor,
		validator: validator,
		registry:  registry,
		logger:    logger.With("component", "server"),
	}
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/notify", s.handleChallenge)
	r.Post("/notify", s.handleNotification)
	r.Get("/healthz", s.handleHealth)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return r
}

// loggingMiddleware logs HTTP requests (never bodies or signatures).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleChallenge implements the hub's subscription verification handshake:
// echo hub.challenge verbatim on success.
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := s.validator.Validate(r.Context(), r.URL.Query())
	if err != nil {
		var ce *websub.ChallengeError
		if errors.As(err, &ce) {
			s.respondText(w, http.StatusBadRequest, ce.Reason)
			return
		}
		s.logger.Error("challenge validation failed", "error", err)
		s.respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.respondText(w, http.StatusOK, challenge)
}

// handleNotification runs the pipeline on a push delivery.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondText(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondText(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	outcome := s.processor.Process(r.Context(), r.Header, body)
	s.respondText(w, outcome.Status, outcome.Body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondText(w, http.StatusOK, "ok")
}

func (s *Server) respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
