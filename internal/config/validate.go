package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by a command mode: "serve",
// "profile" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.JWTSecret == "" {
			errs = append(errs, "server.jwt_secret is required")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "migrate":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "profile":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	switch c.Synthesis.Provider {
	case "gemini", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("synthesis.provider must be gemini or anthropic, got %q", c.Synthesis.Provider))
	}
	switch c.WebSearch.Provider {
	case "gemini", "perplexity":
	default:
		errs = append(errs, fmt.Sprintf("web_search.provider must be gemini or perplexity, got %q", c.WebSearch.Provider))
	}

	if c.Cache.Capacity < 1 {
		errs = append(errs, "cache.capacity must be >= 1")
	}
	if c.Cache.TTLMinutes < 1 {
		errs = append(errs, "cache.ttl_minutes must be >= 1")
	}
	if c.Policy.CriticalAttempts < 1 || c.Policy.BestEffortAttempts < 1 {
		errs = append(errs, "policy attempts must be >= 1")
	}
	if c.Schools.Concurrency < 1 || c.Schools.Concurrency > 50 {
		errs = append(errs, "schools.concurrency must be between 1 and 50")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
