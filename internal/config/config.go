// Package config loads and validates the service configuration.
// Configuration comes from a YAML file with ${VAR} expansion and CS_*
// environment variable overrides.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/verustcode/codesync/pkg/logger"
	"github.com/verustcode/codesync/pkg/telemetry"
)

// DefaultPath is where the configuration file is looked up by default
const DefaultPath = "config/codesync.yaml"

const (
	defaultPort             = 8092
	defaultProviderTimeout  = 30
	defaultQueueSize        = 64
	defaultBranch           = "main"
	defaultTokenExpiryHours = 10
	defaultPDFTimeout       = 60

	// AnalyzerSummary is the built-in analyzer
	AnalyzerSummary = "summary"
	// AnalyzerNone disables analysis; every report fails with an explanation
	AnalyzerNone = "none"
)

// Config is the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Auth      AuthConfig       `yaml:"auth"`
	GitHub    ProviderConfig   `yaml:"github"`
	GitLab    ProviderConfig   `yaml:"gitlab"`
	Sync      SyncConfig       `yaml:"sync"`
	Report    ReportConfig     `yaml:"report"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns the server listen address
func (c ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// DatabaseConfig holds the SQLite database location
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds settings for the application's own sessions.
// JWTSecret is read once at startup and never changes afterwards.
type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpiryHours int    `yaml:"token_expiry_hours"`
	BcryptCost       int    `yaml:"bcrypt_cost"`
}

// TokenExpiry returns the session token lifetime
func (c AuthConfig) TokenExpiry() time.Duration {
	return time.Duration(c.TokenExpiryHours) * time.Hour
}

// ProviderConfig holds OAuth application and webhook settings for one provider.
// Empty URLs fall back to the public provider endpoints.
type ProviderConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	AuthURL       string `yaml:"auth_url"`
	TokenURL      string `yaml:"token_url"`
	APIURL        string `yaml:"api_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// Enabled reports whether an OAuth application is configured
func (c ProviderConfig) Enabled() bool {
	return c.ClientID != ""
}

// SyncConfig controls repository synchronization
type SyncConfig struct {
	// ProviderTimeout bounds every outbound provider call, in seconds
	ProviderTimeout int    `yaml:"provider_timeout"`
	QueueSize       int    `yaml:"queue_size"`
	DefaultBranch   string `yaml:"default_branch"`
	// Schedule is an optional cron expression for periodic resync
	Schedule string `yaml:"schedule"`
}

// Timeout returns the provider call timeout
func (c SyncConfig) Timeout() time.Duration {
	return time.Duration(c.ProviderTimeout) * time.Second
}

// ReportConfig controls report generation and export
type ReportConfig struct {
	Analyzer   string `yaml:"analyzer"`
	Language   string `yaml:"language"`
	PDFTimeout int    `yaml:"pdf_timeout"`
}

// Default returns the configuration used when a field is not set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        defaultPort,
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{Path: "./data/codesync.db"},
		Auth: AuthConfig{
			TokenExpiryHours: defaultTokenExpiryHours,
			BcryptCost:       10,
		},
		Sync: SyncConfig{
			ProviderTimeout: defaultProviderTimeout,
			QueueSize:       defaultQueueSize,
			DefaultBranch:   defaultBranch,
		},
		Report: ReportConfig{
			Analyzer:   AnalyzerSummary,
			Language:   "en",
			PDFTimeout: defaultPDFTimeout,
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
		},
		Telemetry: telemetry.Config{
			ServiceName: "codesync",
			MetricsPath: "/metrics",
		},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default}. Bare $VAR is left alone
// so bcrypt hashes survive.
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name, def, _ := strings.Cut(match[2:len(match)-1], ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		return def
	})
}
