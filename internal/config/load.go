package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path, expands ${VAR} references and
// applies CS_* environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Exists reports whether a config file exists at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Write serializes cfg to path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

const fileHeader = `# CodeSync configuration
#
# Values may reference environment variables as ${VAR} or ${VAR:-default}.
# Secrets can also be supplied through CS_* variables, for example
# CS_JWT_SECRET, CS_GITHUB_CLIENT_SECRET, CS_GITLAB_WEBHOOK_SECRET.
# A .env file in the working directory is loaded first.

`

type envOverride struct {
	name  string
	apply func(*Config, string)
}

var envOverrides = []envOverride{
	{"CS_SERVER_HOST", func(c *Config, v string) { c.Server.Host = v }},
	{"CS_SERVER_PORT", func(c *Config, v string) { setInt(&c.Server.Port, v) }},
	{"CS_SERVER_DEBUG", func(c *Config, v string) { c.Server.Debug = parseBool(v) }},
	{"CS_DATABASE_PATH", func(c *Config, v string) { c.Database.Path = v }},
	{"CS_JWT_SECRET", func(c *Config, v string) { c.Auth.JWTSecret = v }},
	{"CS_GITHUB_CLIENT_ID", func(c *Config, v string) { c.GitHub.ClientID = v }},
	{"CS_GITHUB_CLIENT_SECRET", func(c *Config, v string) { c.GitHub.ClientSecret = v }},
	{"CS_GITHUB_WEBHOOK_SECRET", func(c *Config, v string) { c.GitHub.WebhookSecret = v }},
	{"CS_GITLAB_CLIENT_ID", func(c *Config, v string) { c.GitLab.ClientID = v }},
	{"CS_GITLAB_CLIENT_SECRET", func(c *Config, v string) { c.GitLab.ClientSecret = v }},
	{"CS_GITLAB_WEBHOOK_SECRET", func(c *Config, v string) { c.GitLab.WebhookSecret = v }},
	{"CS_GITLAB_API_URL", func(c *Config, v string) { c.GitLab.APIURL = v }},
	{"CS_SYNC_PROVIDER_TIMEOUT", func(c *Config, v string) { setInt(&c.Sync.ProviderTimeout, v) }},
	{"CS_SYNC_SCHEDULE", func(c *Config, v string) { c.Sync.Schedule = v }},
	{"CS_LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = v }},
	{"CS_LOG_FORMAT", func(c *Config, v string) { c.Logging.Format = v }},
	{"CS_LOG_FILE", func(c *Config, v string) { c.Logging.File = v }},
	{"CS_TELEMETRY_ENABLED", func(c *Config, v string) { c.Telemetry.Enabled = parseBool(v) }},
	{"CS_OTLP_ENDPOINT", func(c *Config, v string) { c.Telemetry.OTLP.Endpoint = v }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		*dst = n
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
