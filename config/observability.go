package config

import (
	"log/slog"
	"strings"
)

const defaultMetricsNamespace = "felix"

// ObservabilityConfig groups configuration that controls logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig
	Metrics ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize(isDev bool) {
	c.Logging.Sanitize(isDev)
	c.Metrics.Sanitize()
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL"  envDefault:"info"`
	// Format is json or text; dev mode defaults to text.
	Format string `env:"LOG_FORMAT"`
}

// Sanitize normalises the level and format.
func (c *LoggingConfig) Sanitize(isDev bool) {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	var lvl slog.Level
	if lvl.UnmarshalText([]byte(c.Level)) != nil {
		c.Level = "info"
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format != "json" && c.Format != "text" {
		c.Format = "json"
		if isDev {
			c.Format = "text"
		}
	}
}

// SlogLevel returns the configured level, or info when it cannot be parsed.
func (c LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ObservabilityMetricsConfig controls the Prometheus endpoint.
type ObservabilityMetricsConfig struct {
	Enabled   bool   `env:"OBSERVABILITY_METRICS_ENABLED"   envDefault:"true"`
	Namespace string `env:"OBSERVABILITY_METRICS_NAMESPACE" envDefault:"felix"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.Namespace = strings.TrimSpace(c.Namespace)
	if c.Namespace == "" {
		c.Namespace = defaultMetricsNamespace
	}
}
