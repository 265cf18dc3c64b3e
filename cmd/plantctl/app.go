package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kroma-labs/solarops/config"
	"github.com/kroma-labs/solarops/httpclient"
	"github.com/kroma-labs/solarops/httpserver"
	"github.com/kroma-labs/solarops/plants"
	"github.com/kroma-labs/solarops/service"
	"github.com/kroma-labs/solarops/workorders"
)

// app is the composition root: one client shared by every domain service,
// each service with its own cache and failure tracker.
type app struct {
	logger     zerolog.Logger
	client     *httpclient.Client
	plants     *plants.Service
	workorders *workorders.Service
	telemetry  *telemetry

	stopDiagnostics func()
	diagnosticsDone chan error
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	tel, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := newClient(cfg, logger, tel)
	if err != nil {
		return nil, errors.Join(err, tel.shutdown(ctx))
	}
	svcOpts := append(cfg.ServiceOptions(),
		service.WithLogger(logger),
		service.WithMeterProvider(tel.meterProvider),
	)

	plantOpts := []plants.Option{plants.WithLogger(logger)}
	orderOpts := []workorders.Option{workorders.WithLogger(logger)}
	if cfg.Fallback.Enabled {
		plantOpts = append(plantOpts, plants.WithFallback(plants.NewSynthetic(cfg.Fallback.Plants)))
		orderOpts = append(orderOpts, workorders.WithFallback(workorders.Empty{}))
	}

	a := &app{
		logger:     logger,
		client:     client,
		plants:     plants.New(service.New("plants", client, svcOpts...), plantOpts...),
		workorders: workorders.New(service.New("workorders", client, svcOpts...), orderOpts...),
		telemetry:  tel,
	}

	if cfg.Metrics.Address != "" {
		a.startDiagnostics(ctx, cfg.Metrics.Address)
	}
	return a, nil
}

func newClient(cfg *config.Config, logger zerolog.Logger, tel *telemetry) (*httpclient.Client, error) {
	opts, err := cfg.ClientOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		httpclient.WithServiceName("plantctl"),
		httpclient.WithLogger(logger),
		httpclient.WithMeterProvider(tel.meterProvider),
		httpclient.WithTracerProvider(tel.tracerProvider),
		httpclient.WithUnauthorizedHandler(func(req *http.Request) {
			logger.Error().
				Str("path", req.URL.Path).
				Msg("session rejected by the backend, set a fresh token in SOLAROPS_API_TOKEN")
		}),
	)
	return httpclient.New(opts...), nil
}

// diagnostics builds the listener serving metrics, health and status.
func (a *app) diagnostics(addr string) *httpserver.Server {
	return httpserver.New(
		httpserver.WithAddr(addr),
		httpserver.WithServiceName("plantctl"),
		httpserver.WithLogger(a.logger),
		httpserver.WithGatherer(a.telemetry.registry),
		httpserver.WithReadinessCheck("breakers", a.checkBreakers),
		httpserver.WithReadinessCheck("plants", checkBackoff(a.plants.Base())),
		httpserver.WithReadinessCheck("workorders", checkBackoff(a.workorders.Base())),
		httpserver.WithStatus(func() any { return a.status() }),
	)
}

func (a *app) startDiagnostics(ctx context.Context, addr string) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	srv := a.diagnostics(addr)
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	a.stopDiagnostics = cancel
	a.diagnosticsDone = done
}

// checkBreakers fails while any endpoint breaker is open.
func (a *app) checkBreakers(context.Context) error {
	var open []string
	for endpoint, s := range a.client.BreakerStatus() {
		if s.State == gobreaker.StateOpen {
			open = append(open, endpoint)
		}
	}
	if len(open) == 0 {
		return nil
	}
	sort.Strings(open)
	return fmt.Errorf("open: %s", strings.Join(open, ", "))
}

// checkBackoff fails while any endpoint of base is resting after failures.
func checkBackoff(base *service.Base) func(context.Context) error {
	return func(context.Context) error {
		var resting []string
		for endpoint, s := range base.FailureStatus() {
			if s.InBackoff {
				resting = append(resting, endpoint)
			}
		}
		if len(resting) == 0 {
			return nil
		}
		sort.Strings(resting)
		return fmt.Errorf("backing off: %s", strings.Join(resting, ", "))
	}
}

func (a *app) shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if a.stopDiagnostics != nil {
		a.stopDiagnostics()
		select {
		case err := <-a.diagnosticsDone:
			errs = append(errs, err)
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	errs = append(errs, a.telemetry.shutdown(ctx))

	if err := errors.Join(errs...); err != nil {
		a.logger.Warn().Err(err).Msg("shutdown")
	}
}
