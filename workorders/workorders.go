package workorders

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/solarops/service"
)

const collection = "/workorders"

// Service reads and writes work orders.
type Service struct {
	base *service.Base
	cfg  config
}

// New creates a Service on top of base.
func New(base *service.Base, opts ...Option) *Service {
	cfg := config{logger: zerolog.Nop()}
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

// List returns the work orders matching filter.
func (s *Service) List(ctx context.Context, filter Filter) service.Result[[]WorkOrder] {
	q := url.Values{}
	if filter.PlantID != "" {
		q.Set("plantId", filter.PlantID)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Priority != "" {
		q.Set("priority", filter.Priority)
	}

	data, err := service.GetJSON[[]WorkOrder](ctx, s.base, collection, service.WithQuery(q))
	return resolve(ctx, s, "List", data, err, func(f Fallback) []WorkOrder {
		return f.List(filter)
	})
}

// Get returns one work order.
func (s *Service) Get(ctx context.Context, id string) service.Result[WorkOrder] {
	data, err := service.GetJSON[WorkOrder](ctx, s.base, itemPath(id))
	return resolve(ctx, s, "Get", data, err, func(f Fallback) WorkOrder {
		return f.Get(id)
	})
}

// Create adds a work order and returns it as stored by the backend.
func (s *Service) Create(ctx context.Context, wo NewWorkOrder) (WorkOrder, error) {
	body, err := s.base.Post(ctx, collection, wo)
	if err != nil {
		return WorkOrder{}, err
	}
	created, err := service.Decode[WorkOrder](body)
	if err != nil {
		return WorkOrder{}, err
	}

	s.cfg.logger.Debug().
		Str("id", created.ID).
		Str("plant_id", created.PlantID).
		Msg("work order created")
	return created, nil
}

// Update changes the fields set in u and returns the updated work order.
func (s *Service) Update(ctx context.Context, id string, u Update) (WorkOrder, error) {
	body, err := s.base.Patch(ctx, itemPath(id), u)
	if err != nil {
		return WorkOrder{}, err
	}
	return service.Decode[WorkOrder](body)
}

// Delete removes a work order.
func (s *Service) Delete(ctx context.Context, id string) error {
	body, err := s.base.Delete(ctx, itemPath(id))
	if err != nil {
		return err
	}
	// Only a wrapped failure matters here; a bare body carries nothing.
	_, err = service.Decode[any](body)
	return err
}

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

func itemPath(id string) string {
	return collection + "/" + url.PathEscape(id)
}
