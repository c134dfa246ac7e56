package config

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v2"
)

// RateLimitConfig throttles the admin API (§6): a single bearer-token
// caller issuing submit_fill/submit_cancel/submit_reject in a tight loop
// should not be able to starve other callers or the lifecycle engine.
type RateLimitConfig struct {
	Enabled           bool                           `yaml:"enabled"`
	RequestsPerSecond float64                        `yaml:"requests_per_second"`
	BurstSize         int                            `yaml:"burst_size"`
	Endpoints         map[string]EndpointLimitConfig `yaml:"endpoints"`
}

// EndpointLimitConfig overrides the default limit for one admin endpoint.
type EndpointLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type adminYAMLConfig struct {
	RateLimiting RateLimitConfig `yaml:"rate_limiting"`
}

// LoadRateLimitConfig loads the admin API's rate limit configuration from
// config/admin.yaml, falling back to sensible defaults if the file is
// absent (a fresh checkout should still run).
func LoadRateLimitConfig() (RateLimitConfig, error) {
	path := os.Getenv("ADMIN_CONFIG")
	if path == "" {
		path = "config/admin.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			BurstSize:         20,
			Endpoints:         make(map[string]EndpointLimitConfig),
		}, nil
	}

	var full adminYAMLConfig
	if err := yaml.Unmarshal(data, &full); err != nil {
		return RateLimitConfig{}, fmt.Errorf("config: parse admin.yaml: %w", err)
	}
	return full.RateLimiting, nil
}
