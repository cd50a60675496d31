// Package config loads the rendezvous server's configuration from an
// optional YAML file, then applies environment-variable overrides on top
// of it; cmd/gossiprouter applies CLI-flag overrides after Load.
// Precedence, lowest to highest: built-in defaults, YAML file,
// environment variables, explicit CLI flags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config is the full rendezvous server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig controls the listener, acceptor, and sweeper.
type ServerConfig struct {
	BindAddr              string `yaml:"bind_addr"`
	Port                  uint16 `yaml:"port"`
	Backlog               int    `yaml:"backlog"`
	ExpiryMillis          int64  `yaml:"expiry_ms"`
	LingerMillis          int64  `yaml:"solinger_ms"`
	ReadTimeoutMillis     int64  `yaml:"sotimeout_ms"`
	MaxConcurrentSessions int64  `yaml:"max_concurrent_sessions"`
}

// MirrorConfig controls the optional, non-authoritative Redis mirror.
// Enabled defaults to false: the server is fully functional without it.
type MirrorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLMillis int64  `yaml:"ttl_ms"`
}

// MetricsConfig controls the Prometheus HTTP exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Default returns the configuration's built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddr:              "",
			Port:                  12001,
			Backlog:               1000,
			ExpiryMillis:          60000,
			LingerMillis:          2000,
			ReadTimeoutMillis:     0,
			MaxConcurrentSessions: 10000,
		},
		Mirror: MirrorConfig{
			Enabled:   false,
			Addr:      "localhost:6379",
			KeyPrefix: "gossiprouter:member:",
			TTLMillis: 300000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Load reads path as YAML on top of Default(), then applies environment
// overrides. An empty path skips the file read and returns
// defaults-plus-env.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides layers GOSSIPROUTER_* environment variables over cfg.
func (c *Config) applyEnvOverrides() {
	c.Server.BindAddr = getEnv("GOSSIPROUTER_BIND_ADDR", c.Server.BindAddr)
	c.Server.Port = uint16(getEnvInt("GOSSIPROUTER_PORT", int(c.Server.Port)))
	c.Server.Backlog = getEnvInt("GOSSIPROUTER_BACKLOG", c.Server.Backlog)
	c.Server.ExpiryMillis = getEnvInt64("GOSSIPROUTER_EXPIRY_MS", c.Server.ExpiryMillis)
	c.Server.LingerMillis = getEnvInt64("GOSSIPROUTER_SOLINGER_MS", c.Server.LingerMillis)
	c.Server.ReadTimeoutMillis = getEnvInt64("GOSSIPROUTER_SOTIMEOUT_MS", c.Server.ReadTimeoutMillis)
	c.Server.MaxConcurrentSessions = getEnvInt64("GOSSIPROUTER_MAX_SESSIONS", c.Server.MaxConcurrentSessions)

	c.Mirror.Enabled = getEnvBool("GOSSIPROUTER_MIRROR_ENABLED", c.Mirror.Enabled)
	c.Mirror.Addr = getEnv("GOSSIPROUTER_MIRROR_ADDR", c.Mirror.Addr)
	c.Mirror.Password = getEnv("GOSSIPROUTER_MIRROR_PASSWORD", c.Mirror.Password)
	c.Mirror.DB = getEnvInt("GOSSIPROUTER_MIRROR_DB", c.Mirror.DB)

	c.Metrics.Enabled = getEnvBool("GOSSIPROUTER_METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Addr = getEnv("GOSSIPROUTER_METRICS_ADDR", c.Metrics.Addr)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
