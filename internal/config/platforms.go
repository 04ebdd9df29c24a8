package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	platformsConfigEnv = "CROSSPOST_CONFIG"
	dispatchCronEnv    = "DISPATCH_CRON"
	dispatchBatchEnv   = "DISPATCH_BATCH_SIZE"
)

// Platforms is the outbound platform catalog loaded at startup.
var Platforms PlatformsConfig

// PlatformsConfig describes which platforms can be targeted, where their
// APIs live and how hard we may hit them.
type PlatformsConfig struct {
	Dispatch  DispatchConfig   `yaml:"dispatch"`
	Platforms []PlatformConfig `yaml:"platforms"`
}

// DispatchConfig defines when the dispatcher runs and how much work a single
// run may pick up.
type DispatchConfig struct {
	CronExpression string `yaml:"cronExpression"`
	BatchSize      int    `yaml:"batchSize"`
}

// PlatformConfig holds the wiring for one platform adapter.
type PlatformConfig struct {
	ID                string  `yaml:"id"`
	APIBaseURL        string  `yaml:"apiBaseUrl"`
	TokenURL          string  `yaml:"tokenUrl"`
	ClientID          string  `yaml:"clientId"`
	ClientSecret      string  `yaml:"clientSecret"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	MediaRequired     bool    `yaml:"mediaRequired"`
	Unsupported       bool    `yaml:"unsupported"`
}

// InitPlatforms reads the YAML catalog (if present) and applies environment
// overrides. Missing file falls back to built-in defaults.
func InitPlatforms() {
	cfg := defaultPlatforms()

	if path := os.Getenv(platformsConfigEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultPlatforms()
		}
	}

	if v := os.Getenv(dispatchCronEnv); v != "" {
		cfg.Dispatch.CronExpression = v
	}
	if v := os.Getenv(dispatchBatchEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dispatch.BatchSize = n
		}
	}

	if cfg.Dispatch.CronExpression == "" {
		cfg.Dispatch.CronExpression = "* * * * *"
	}
	if cfg.Dispatch.BatchSize <= 0 {
		cfg.Dispatch.BatchSize = 10
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = defaultPlatforms().Platforms
	}

	Platforms = cfg
}

// Find returns the catalog entry for a platform id, or nil.
func (c PlatformsConfig) Find(id string) *PlatformConfig {
	for i := range c.Platforms {
		if c.Platforms[i].ID == id {
			return &c.Platforms[i]
		}
	}
	return nil
}

// MediaRequired maps platform id to whether at least one media url is
// mandatory for publishing there.
func (c PlatformsConfig) MediaRequired() map[string]bool {
	m := make(map[string]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		m[p.ID] = p.MediaRequired
	}
	return m
}

func defaultPlatforms() PlatformsConfig {
	return PlatformsConfig{
		Dispatch: DispatchConfig{
			CronExpression: "* * * * *",
			BatchSize:      10,
		},
		Platforms: []PlatformConfig{
			{
				ID:                "x",
				APIBaseURL:        "https://api.twitter.com",
				TokenURL:          "https://api.twitter.com/2/oauth2/token",
				RequestsPerSecond: 1,
			},
			{
				ID:                "facebook",
				APIBaseURL:        "https://graph.facebook.com/v19.0",
				TokenURL:          "https://graph.facebook.com/v19.0/oauth/access_token",
				RequestsPerSecond: 2,
			},
			{
				ID:                "instagram",
				APIBaseURL:        "https://graph.facebook.com/v19.0",
				TokenURL:          "https://graph.facebook.com/v19.0/oauth/access_token",
				RequestsPerSecond: 1,
				MediaRequired:     true,
			},
			{
				ID:                "linkedin",
				APIBaseURL:        "https://api.linkedin.com",
				TokenURL:          "https://www.linkedin.com/oauth/v2/accessToken",
				RequestsPerSecond: 1,
			},
			{
				ID:                "telegram",
				RequestsPerSecond: 5,
			},
			{
				ID:            "youtube",
				MediaRequired: true,
				Unsupported:   true,
			},
		},
	}
}
