package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/spf13/viper"
)

type ServiceSettings struct {
	BaseURL         string        `mapstructure:"base_url"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout"`
	PriceColumn     string        `mapstructure:"price_column"`
}

type SweepSettings struct {
	Percent float64 `mapstructure:"percent"`
	Points  int     `mapstructure:"points"`
}

type ElasticitySettings struct {
	Epsilon      float64   `mapstructure:"epsilon"`
	Placeholders []float64 `mapstructure:"placeholders"`
}

type ServerSettings struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Settings struct {
	Service            ServiceSettings    `mapstructure:"service"`
	Sweep              SweepSettings      `mapstructure:"sweep"`
	Elasticity         ElasticitySettings `mapstructure:"elasticity"`
	MaxConcurrency     int                `mapstructure:"max_concurrency"`
	CanonicalSecondary string             `mapstructure:"canonical_secondary"`
	Server             ServerSettings     `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.base_url", "")
	v.SetDefault("service.token", "")
	v.SetDefault("service.timeout", "30s")
	v.SetDefault("service.fallback_timeout", "60s")
	v.SetDefault("service.price_column", "price")
	v.SetDefault("sweep.percent", 20.0)
	v.SetDefault("sweep.points", 21)
	v.SetDefault("elasticity.epsilon", 0.001)
	v.SetDefault("elasticity.placeholders", []float64{-0.16, -0.23, -0.31, -0.38, -0.45, -0.52, -0.61, -0.68, -0.74, -0.89})
	v.SetDefault("max_concurrency", 6)
	v.SetDefault("canonical_secondary", "P001")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")
}

// LoadSettings reads an optional YAML file; PRICING_* environment variables
// override it (e.g. PRICING_SERVICE_BASE_URL).
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pricing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Settings) Validate() error {
	if err := s.DefaultSweep().Validate(); err != nil {
		return fmt.Errorf("invalid default sweep: %w", err)
	}
	if s.Elasticity.Epsilon <= 0 {
		return fmt.Errorf("elasticity epsilon must be positive, got %v", s.Elasticity.Epsilon)
	}
	if s.Service.Timeout <= 0 || s.Service.FallbackTimeout <= 0 {
		return fmt.Errorf("service timeouts must be positive")
	}
	if s.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", s.MaxConcurrency)
	}
	return nil
}

func (s *Settings) DefaultSweep() domain.SweepParams {
	return domain.SweepParams{Percent: s.Sweep.Percent, Points: s.Sweep.Points}
}

// ApplyProfile fills the service endpoint from a profile unless set explicitly.
func (s *Settings) ApplyProfile(p *Profile) {
	if p == nil {
		return
	}
	if s.Service.BaseURL == "" {
		s.Service.BaseURL = p.Host
	}
	if s.Service.Token == "" {
		s.Service.Token = p.Token
	}
	if p.Timeout > 0 {
		s.Service.Timeout = p.Timeout
	}
}
