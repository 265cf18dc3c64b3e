package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server serves the diagnostics endpoints until its context is cancelled.
type Server struct {
	httpServer *http.Server
	config     config
	logger     zerolog.Logger
	health     *healthHandler
}

// New creates a Server with the provided options.
func New(opts ...Option) *Server {
	cfg := newConfig(opts...)

	health := newHealthHandler(cfg.serviceName, cfg.version)
	for _, c := range cfg.readiness {
		health.addReadinessCheck(c.name, c.check)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /livez", health.liveHandler())
	mux.Handle("GET /readyz", health.readyHandler())
	if cfg.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{
			ErrorLog: promLogger{cfg.logger},
		}))
	}
	if cfg.status != nil {
		mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
			WriteSuccess(w, http.StatusOK, cfg.status(), "")
		})
	}

	handler := Chain(
		Recovery(cfg.logger),
		RequestID(),
		AccessLog(cfg.logger, cfg.quietPaths...),
	)(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.readTimeout,
			ReadTimeout:       cfg.readTimeout,
		},
		config: cfg,
		logger: cfg.logger,
		health: health,
	}
}

// Handler returns the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. Serve takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Str("service", s.config.serviceName).
			Msg("diagnostics server starting")

		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
	}()

	select {
	case err := <-errc:
		if err != nil {
			s.logger.Error().Err(err).Msg("diagnostics server failed")
		}
		return err
	case <-ctx.Done():
	}

	return s.shutdown(context.WithoutCancel(ctx))
}

func (s *Server) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		_ = s.httpServer.Close()
		return err
	}

	s.logger.Info().Msg("diagnostics server stopped")
	return nil
}

// promLogger routes promhttp errors to zerolog.
type promLogger struct {
	logger zerolog.Logger
}

func (l promLogger) Println(v ...any) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
