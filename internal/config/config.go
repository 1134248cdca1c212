// Package config provides environment-driven configuration for the queryhawk server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string

	// Exporter lifecycle settings.
	ExporterImage   string
	ExporterNetwork string
	ScrapeHost      string
	TargetsDir      string
	PrometheusURL   string
	PortRangeStart  int
	PortRangeEnd    int

	// Poller settings.
	PollInterval   time.Duration
	ConnectTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            envOrDefault("PORT", "4000"),
		ListenHost:      envOrDefault("LISTEN_HOST", "0.0.0.0"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		ExporterImage:   envOrDefault("EXPORTER_IMAGE", "prometheuscommunity/postgres-exporter"),
		ExporterNetwork: envOrDefault("EXPORTER_NETWORK", "monitoring"),
		ScrapeHost:      envOrDefault("SCRAPE_HOST", "localhost"),
		TargetsDir:      envOrDefault("TARGETS_DIR", "/etc/prometheus/postgres_targets"),
		PrometheusURL:   envOrDefault("PROMETHEUS_URL", "http://prometheus:9090"),
	}

	var err error

	if cfg.PortRangeStart, err = envInt("EXPORTER_PORT_START", 9187); err != nil {
		return nil, err
	}

	if cfg.PortRangeEnd, err = envInt("EXPORTER_PORT_END", 9999); err != nil {
		return nil, err
	}

	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout, err = envDuration("CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:5173")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func (c *Config) validate() error {
	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateExporter(); err != nil {
		return err
	}

	if err := c.validatePoller(); err != nil {
		return err
	}

	return c.validateCORS()
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	return nil
}

func (c *Config) validateExporter() error {
	if c.ExporterImage == "" {
		return fmt.Errorf("EXPORTER_IMAGE must not be empty")
	}

	if c.ExporterNetwork == "" {
		return fmt.Errorf("EXPORTER_NETWORK must not be empty")
	}

	if c.TargetsDir == "" {
		return fmt.Errorf("TARGETS_DIR must not be empty")
	}

	if _, err := url.ParseRequestURI(c.PrometheusURL); err != nil {
		return fmt.Errorf("PROMETHEUS_URL is not a valid URL: %w", err)
	}

	if c.PortRangeStart < 1024 || c.PortRangeStart > 65535 {
		return fmt.Errorf("EXPORTER_PORT_START must be between 1024 and 65535")
	}

	if c.PortRangeEnd < c.PortRangeStart || c.PortRangeEnd > 65535 {
		return fmt.Errorf("EXPORTER_PORT_END must be between EXPORTER_PORT_START and 65535")
	}

	return nil
}

func (c *Config) validatePoller() error {
	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s")
	}

	if c.ConnectTimeout < time.Second {
		return fmt.Errorf("CONNECT_TIMEOUT must be at least 1s")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like '15s': %w", key, err)
	}

	return d, nil
}
