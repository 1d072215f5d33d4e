package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/de-tools/pricing-atlas/pkg/services/elasticity"
	"github.com/de-tools/pricing-atlas/pkg/services/selection"
	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuerierFactory builds the elasticity querier bound to one session's dataset cache.
type QuerierFactory func(cache *dataset.Cache) elasticity.Querier

type Controller interface {
	Open(ctx context.Context, cfg SessionConfig) (*Session, error)
	Session(id string) (*Session, error)
	Close(ctx context.Context, id string) error
}

type SessionConfig struct {
	// ID reuses a session slot; opening it again discards the previous run.
	ID               string
	ServiceSessionID string
	Forecast         domain.ForecastSet
	Cache            *dataset.Cache
}

type Settings struct {
	NewQuerier         QuerierFactory
	MaxConcurrency     int
	CanonicalSecondary string
}

type DefaultController struct {
	settings Settings

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewController(settings Settings) *DefaultController {
	return &DefaultController{
		settings: settings,
		sessions: make(map[string]*Session),
	}
}

func (ctrl *DefaultController) Open(ctx context.Context, cfg SessionConfig) (*Session, error) {
	logger := zerolog.Ctx(ctx)

	if cfg.Forecast.PrimaryDimension == "" || cfg.Forecast.SecondaryDimension == "" {
		return nil, fmt.Errorf("forecast dimensions are required")
	}
	if cfg.Cache == nil {
		cfg.Cache = dataset.NewCache(dataset.Options{})
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	dims, err := cfg.Cache.Dimensions(cfg.Forecast.PrimaryDimension, cfg.Forecast.SecondaryDimension)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to discover dataset dimensions, using forecast entities only")
		dims = nil
	}

	resolver := selection.NewResolver(cfg.Forecast, selection.Options{
		CanonicalSecondary: ctrl.settings.CanonicalSecondary,
		DatasetDimensions:  dims,
	})
	initial, err := resolver.Initial()
	if err != nil {
		return nil, err
	}

	querier := ctrl.settings.NewQuerier(cfg.Cache)
	session := &Session{
		id:               cfg.ID,
		serviceSessionID: cfg.ServiceSessionID,
		forecast:         cfg.Forecast,
		cache:            cfg.Cache,
		resolver:         resolver,
		querier:          querier,
		aggregator:       elasticity.NewAggregator(querier, ctrl.settings.MaxConcurrency),
		now:              time.Now,
	}
	session.state = domain.AnalysisState{Selection: initial, UpdatedAt: session.now()}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if previous, ok := ctrl.sessions[cfg.ID]; ok {
		previous.Close()
	}
	ctrl.sessions[cfg.ID] = session

	logger.Info().
		Str("session", cfg.ID).
		Int("entities", len(resolver.Entities())).
		Bool("dataset_cached", !cfg.Cache.Empty()).
		Msg("analysis session opened")
	return session, nil
}

func (ctrl *DefaultController) Session(id string) (*Session, error) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	s, ok := ctrl.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (ctrl *DefaultController) Close(ctx context.Context, id string) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	s, ok := ctrl.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	delete(ctrl.sessions, id)

	zerolog.Ctx(ctx).Info().Str("session", id).Msg("analysis session closed")
	return nil
}
