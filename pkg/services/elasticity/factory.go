package elasticity

import (
	"fmt"

	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
)

type FactoryConfig struct {
	Transport    TransportConfig
	Client       Options
	Epsilon      float64
	Placeholders []float64
}

// NewClientFactory shares one transport and normalizer across sessions and
// binds a Client to each session's dataset cache.
func NewClientFactory(cfg FactoryConfig) (func(cache *dataset.Cache) Querier, error) {
	if cfg.Transport.BaseURL == "" {
		return nil, fmt.Errorf("pricing service base URL is required")
	}

	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}

	var policy PlaceholderPolicy
	if len(cfg.Placeholders) > 0 {
		table, err := NewTablePolicy(cfg.Placeholders, cfg.Epsilon)
		if err != nil {
			return nil, fmt.Errorf("invalid placeholder table: %w", err)
		}
		policy = table
	}

	transport := NewTransport(cfg.Transport)
	normalizer := NewNormalizer(cfg.Epsilon, policy)

	return func(cache *dataset.Cache) Querier {
		return NewClient(transport, cache, normalizer, cfg.Client)
	}, nil
}
