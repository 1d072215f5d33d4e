package main

import (
	"fmt"
	"net"
	"os"

	"github.com/de-tools/pricing-atlas/pkg/server"
	"github.com/de-tools/pricing-atlas/pkg/services/analysis"
	"github.com/de-tools/pricing-atlas/pkg/services/config"
	"github.com/de-tools/pricing-atlas/pkg/services/elasticity"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath      string
	profilesPath string
	profileName  string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for the pricing analysis dashboard",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVar(&profilesPath, "profiles", config.DefaultProfilesPath(),
		"Path to the pricing service profiles file (default is $HOME/.pricingcfg)")
	rootCmd.Flags().StringVarP(&profileName, "profile", "p", config.DefaultProfile, "Pricing service profile to use")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.LoadSettings(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if _, err := os.Stat(profilesPath); err == nil {
		registry, err := config.NewRegistry(profilesPath)
		if err != nil {
			return fmt.Errorf("failed to create profile registry: %w", err)
		}
		profile, err := registry.GetProfile(ctx, profileName)
		if err != nil {
			return fmt.Errorf("failed to resolve profile: %w", err)
		}
		settings.ApplyProfile(profile)

		logger.Info().Msgf("Profiles found at `%s` successfully loaded.", profilesPath)
		profiles, _ := registry.GetProfiles(ctx)
		for _, name := range profiles {
			logger.Info().Msgf("Name: `%s`", name)
		}
	}

	newQuerier, err := elasticity.NewClientFactory(elasticity.FactoryConfig{
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
		return fmt.Errorf("failed to configure pricing service client: %w", err)
	}

	analysisCtrl := analysis.NewController(analysis.Settings{
		NewQuerier:         newQuerier,
		MaxConcurrency:     settings.MaxConcurrency,
		CanonicalSecondary: settings.CanonicalSecondary,
	})

	logger.Info().
		Str("service", settings.Service.BaseURL).
		Dur("fallback_timeout", settings.Service.FallbackTimeout).
		Msg("pricing service configured")

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            net.JoinHostPort(settings.Server.Host, settings.Server.Port),
		ShutdownTimeout: settings.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Analysis:     analysisCtrl,
			DefaultSweep: settings.DefaultSweep(),
		},
	})

	return webAPI.Start()
}
