package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/de-tools/pricing-atlas/pkg/services/analysis"
	"github.com/de-tools/pricing-atlas/pkg/services/config"
	"github.com/de-tools/pricing-atlas/pkg/services/elasticity"
	"github.com/de-tools/pricing-atlas/pkg/store/dataset"
	"github.com/de-tools/pricing-atlas/pkg/store/objectstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Env carries what the root command resolves for every subcommand.
type Env struct {
	ConfigPath   string
	ProfilesPath string
	Profile      string
	Logger       zerolog.Logger

	// NewQuerier and Uploader replace the pricing service client and S3 when set.
	NewQuerier analysis.QuerierFactory
	Uploader   objectstore.Uploader
}

func (e *Env) Context(cmd *cobra.Command) context.Context {
	return e.Logger.WithContext(cmd.Context())
}

// Settings loads the config file and fills the service endpoint from the selected profile.
func (e *Env) Settings(ctx context.Context) (*config.Settings, error) {
	settings, err := config.LoadSettings(e.ConfigPath)
	if err != nil {
		return nil, err
	}

	profile, err := e.profile(ctx)
	if err != nil {
		return nil, err
	}
	settings.ApplyProfile(profile)
	return settings, nil
}

func (e *Env) profile(ctx context.Context) (*config.Profile, error) {
	path := e.ProfilesPath
	if path == "" {
		path = config.DefaultProfilesPath()
	}

	if _, err := os.Stat(path); err != nil {
		if e.Profile != "" {
			return nil, fmt.Errorf("profile %s requested but %s cannot be read: %w", e.Profile, path, err)
		}
		return nil, nil
	}

	registry, err := config.NewRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %s: %w", path, err)
	}

	name := e.Profile
	if name == "" {
		name = config.DefaultProfile
	}
	profile, err := registry.GetProfile(ctx, name)
	if err != nil {
		if e.Profile == "" {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("no default profile, using config values")
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

func (e *Env) Controller(settings *config.Settings) (*analysis.DefaultController, error) {
	newQuerier := e.NewQuerier
	if newQuerier == nil {
		factory, err := elasticity.NewClientFactory(elasticity.FactoryConfig{
			Transport: elasticity.TransportConfig{
				BaseURL: settings.Service.BaseURL,
				Token:   settings.Service.Token,
				Timeout: settings.Service.Timeout,
			},
			Client: elasticity.Options{
				PriceColumn:     settings.Service.PriceColumn,
				FallbackTimeout: settings.Service.FallbackTimeout,
			},
			Epsilon:      settings.Elasticity.Epsilon,
			Placeholders: settings.Elasticity.Placeholders,
		})
		if err != nil {
			return nil, err
		}
		newQuerier = factory
	}

	return analysis.NewController(analysis.Settings{
		NewQuerier:         newQuerier,
		MaxConcurrency:     settings.MaxConcurrency,
		CanonicalSecondary: settings.CanonicalSecondary,
	}), nil
}

type inputs struct {
	datasetPath  string
	forecastPath string
	primaryDim   string
	secondaryDim string
}

func (in *inputs) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.datasetPath, "dataset", "", "Path to the uploaded sales dataset (CSV)")
	cmd.Flags().StringVar(&in.forecastPath, "forecast", "", "Path to the forecast export (CSV)")
	cmd.Flags().StringVar(&in.primaryDim, "primary-dim", "", "Primary grouping column, e.g. store")
	cmd.Flags().StringVar(&in.secondaryDim, "secondary-dim", "", "Secondary grouping column, e.g. product")

	_ = cmd.MarkFlagRequired("forecast")
	_ = cmd.MarkFlagRequired("primary-dim")
	_ = cmd.MarkFlagRequired("secondary-dim")
}

// load reads the forecast and builds the dataset cache from the raw dataset and the forecast export.
func (in *inputs) load() (domain.ForecastSet, *dataset.Cache, error) {
	forecastContent, err := os.ReadFile(in.forecastPath)
	if err != nil {
		return domain.ForecastSet{}, nil, fmt.Errorf("failed to read forecast: %w", err)
	}
	forecast, err := dataset.ParseForecastCSV(bytes.NewReader(forecastContent), in.primaryDim, in.secondaryDim)
	if err != nil {
		return domain.ForecastSet{}, nil, err
	}

	opts := dataset.Options{
		ForecastExport: &dataset.Source{Name: filepath.Base(in.forecastPath), Content: forecastContent},
	}
	if in.datasetPath != "" {
		content, err := os.ReadFile(in.datasetPath)
		if err != nil {
			return domain.ForecastSet{}, nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		opts.Raw = &dataset.Source{Name: filepath.Base(in.datasetPath), Content: content}
	}
	return forecast, dataset.NewCache(opts), nil
}
