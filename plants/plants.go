package plants

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/solarops/service"
)

// Service reads plant data.
type Service struct {
	base *service.Base
	cfg  config
}

// New creates a Service on top of base.
func New(base *service.Base, opts ...Option) *Service {
	cfg := config{
		logger:   zerolog.Nop(),
		alertTTL: DefaultAlertTTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = cfg.logger.With().Str("service", base.Name()).Logger()

	return &Service{base: base, cfg: cfg}
}

// Base returns the service's cache and backoff layer, for diagnostics.
func (s *Service) Base() *service.Base {
	return s.base
}

// ListPlants returns every plant visible to the caller.
func (s *Service) ListPlants(ctx context.Context) service.Result[[]Plant] {
	data, err := service.GetJSON[[]Plant](ctx, s.base, "/plants")
	return resolve(ctx, s, "ListPlants", data, err, func(f Fallback) []Plant {
		return f.Plants()
	})
}

// GetPlant returns one plant.
func (s *Service) GetPlant(ctx context.Context, id string) service.Result[Plant] {
	data, err := service.GetJSON[Plant](ctx, s.base, plantPath(id))
	return resolve(ctx, s, "GetPlant", data, err, func(f Fallback) Plant {
		return f.Plant(id)
	})
}

// GetWeather returns the weather at a plant on date.
func (s *Service) GetWeather(ctx context.Context, plantID string, date time.Time) service.Result[Weather] {
	data, err := service.GetJSON[Weather](ctx, s.base, plantPath(plantID)+"/weather",
		service.WithQuery(dateQuery(date)))
	return resolve(ctx, s, "GetWeather", data, err, func(f Fallback) Weather {
		return f.Weather(plantID, date)
	})
}

// GetKPIs returns the performance indicators of a plant on date.
func (s *Service) GetKPIs(ctx context.Context, plantID string, date time.Time) service.Result[KPIs] {
	data, err := service.GetJSON[KPIs](ctx, s.base, plantPath(plantID)+"/kpis",
		service.WithQuery(dateQuery(date)))
	return resolve(ctx, s, "GetKPIs", data, err, func(f Fallback) KPIs {
		return f.KPIs(plantID, date)
	})
}

// ListAlerts returns the alerts matching filter.
func (s *Service) ListAlerts(ctx context.Context, filter AlertFilter) service.Result[[]Alert] {
	q := url.Values{}
	if filter.PlantID != "" {
		q.Set("plantId", filter.PlantID)
	}
	if filter.Severity != "" {
		q.Set("severity", filter.Severity)
	}
	if filter.ActiveOnly {
		q.Set("active", strconv.FormatBool(true))
	}

	data, err := service.GetJSON[[]Alert](ctx, s.base, "/alerts",
		service.WithQuery(q),
		service.WithTTL(s.cfg.alertTTL),
	)
	return resolve(ctx, s, "ListAlerts", data, err, func(f Fallback) []Alert {
		return f.Alerts(filter)
	})
}

// ListTrackers returns the trackers of a plant.
func (s *Service) ListTrackers(ctx context.Context, plantID string) service.Result[[]Tracker] {
	data, err := service.GetJSON[[]Tracker](ctx, s.base, plantPath(plantID)+"/trackers")
	return resolve(ctx, s, "ListTrackers", data, err, func(f Fallback) []Tracker {
		return f.Trackers(plantID)
	})
}

// resolve substitutes synthetic data for a failed read when a Fallback is
// configured.
func resolve[T any](ctx context.Context, s *Service, op string, data T, err error, fb func(Fallback) T) service.Result[T] {
	var synth func() T
	if s.cfg.fallback != nil {
		synth = func() T {
			s.cfg.logger.Warn().
				Str("operation", op).
				Err(err).
				Msg("read failed, serving synthetic data")
			return fb(s.cfg.fallback)
		}
	}
	return service.Resolve(ctx, data, err, synth)
}

func plantPath(id string) string {
	return "/plants/" + url.PathEscape(id)
}

// dateQuery selects a day. The transport rewrites it to the wire format.
func dateQuery(date time.Time) url.Values {
	return url.Values{"date": {date.UTC().Format(time.DateOnly)}}
}
