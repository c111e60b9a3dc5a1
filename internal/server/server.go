// Package server exposes the processing pipeline and test-prep lookup over
// HTTP for clients that do not call the providers themselves.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lectern/internal/config"
	"lectern/internal/domain"
)

// Processor runs the pipeline stages for one uploaded file. The stages are
// called directly so concurrent uploads do not contend for the desktop
// pipeline's single-run guard.
type Processor interface {
	Transcribe(ctx context.Context, location string) (string, error)
	Enrich(ctx context.Context, transcript string) (domain.Insights, error)
}

// TestPrepLookup builds a study guide for a subject.
type TestPrepLookup interface {
	Lookup(ctx context.Context, subject, level string) (domain.TestPrep, error)
}

type Server struct {
	cfg       config.ServerConfig
	processor Processor
	testPrep  TestPrepLookup
	metrics   *Metrics
	log       zerolog.Logger
	now       func() time.Time

	handler http.Handler
}

func New(cfg config.ServerConfig, processor Processor, testPrep TestPrepLookup, log zerolog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		processor: processor,
		testPrep:  testPrep,
		metrics:   NewMetrics(),
		log:       log.With().Str("component", "server").Logger(),
		now:       time.Now,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "POST /transcribe", "transcribe", http.HandlerFunc(s.handleTranscribe))
	s.handle(mux, "GET /test-prep", "test_prep", http.HandlerFunc(s.handleTestPrep))
	s.handle(mux, "GET /health", "health", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	return Chain(
		Recovery(s.log),
		RequestLog(s.log),
		CORS(),
	)(mux)
}

func (s *Server) handle(mux *http.ServeMux, pattern, route string, h http.Handler) {
	mux.Handle(pattern, Instrument(s.metrics, route)(h))
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info().Msg("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
