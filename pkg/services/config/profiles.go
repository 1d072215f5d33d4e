package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

const DefaultProfile = "default"

// Profile points at one pricing service deployment.
type Profile struct {
	Name    string
	Host    string
	Token   string
	Timeout time.Duration
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

// DefaultProfilesPath is $HOME/.pricingcfg.
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pricingcfg"
	}
	return filepath.Join(home, ".pricingcfg")
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (*Profile, error) {
	section, err := cr.cfg.GetSection(name)
	if err != nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("profile %s not found", name)
	}

	host := section.Key("host").String()
	if host == "" {
		return nil, fmt.Errorf("profile %s has no host", name)
	}

	profile := &Profile{
		Name:  name,
		Host:  host,
		Token: section.Key("token").String(),
	}
	if section.HasKey("timeout") {
		timeout, err := section.Key("timeout").Duration()
		if err != nil {
			return nil, fmt.Errorf("profile %s has invalid timeout: %w", name, err)
		}
		profile.Timeout = timeout
	}
	return profile, nil
}
