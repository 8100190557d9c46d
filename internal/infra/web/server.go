// Package web exposes the assistant over HTTP.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"voice-relay/internal/application"
)

const DefaultMaxBodyBytes = 10 << 20

// Pipeline is the part of the assistant the HTTP front door needs.
type Pipeline interface {
	Handle(ctx context.Context, req application.Request) (*application.Result, error)
}

// RequestObserver records served HTTP requests.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

type Config struct {
	Addr          string
	MaxBodyBytes  int64
	SessionCookie string
	RateLimit     int
	RateWindow    time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

type Server struct {
	cfg         Config
	pipeline    Pipeline
	history     application.HistoryStore
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter
	observer    RequestObserver

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// NewServer wires the routes. metrics may be nil, in which case /metrics is
// not served.
func NewServer(
	cfg Config,
	pipeline Pipeline,
	history application.HistoryStore,
	metrics http.Handler,
	observer RequestObserver,
	logger *slog.Logger,
) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "relay_session"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	s := &Server{
		cfg:         cfg,
		pipeline:    pipeline,
		history:     history,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		observer:    observer,
	}

	s.handle("POST /process-audio", s.rateLimiter.Middleware(s.handleProcessAudio))
	s.handle("GET /history", s.handleGetHistory)
	s.handle("DELETE /history", s.handleClearHistory)
	s.handle("GET /health", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
	return s
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	if s.observer == nil {
		s.mux.HandleFunc(pattern, h)
		return
	}
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.observer.ObserveRequest(pattern, rec.status, time.Since(start))
	})
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.cfg.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(s.cfg.RateWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rateLimiter.Prune()
			}
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
