package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/verustcode/codesync/pkg/errors"
)

// MinJWTSecretLength is the minimum JWT secret length (256 bits for HS256)
const MinJWTSecretLength = 32

// Validate checks the configuration and returns every problem found in a
// single AppError, or nil.
func (c *Config) Validate() *errors.AppError {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		add("database.path is required")
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return errors.New(errors.ErrCodeJWTSecretInvalid,
			fmt.Sprintf("auth.jwt_secret must be at least %d characters", MinJWTSecretLength))
	}
	if c.Auth.TokenExpiryHours <= 0 {
		add("auth.token_expiry_hours must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		add("auth.bcrypt_cost must be between 4 and 31")
	}

	for name, p := range map[string]ProviderConfig{"github": c.GitHub, "gitlab": c.GitLab} {
		if p.Enabled() && p.ClientSecret == "" {
			add("%s.client_secret is required when %s.client_id is set", name, name)
		}
	}

	if c.Sync.ProviderTimeout <= 0 {
		add("sync.provider_timeout must be a positive number of seconds")
	}
	if c.Sync.QueueSize <= 0 {
		add("sync.queue_size must be positive")
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			add("sync.schedule is not a valid cron expression: %v", err)
		}
	}

	switch c.Report.Analyzer {
	case AnalyzerSummary, AnalyzerNone:
	default:
		add("report.analyzer must be %q or %q", AnalyzerSummary, AnalyzerNone)
	}
	if _, err := ParseLanguage(c.Report.Language); err != nil {
		add("report.language: %v", err)
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeConfigInvalid, strings.Join(problems, "; ")).WithDetails(problems)
	}
	return nil
}

// Warnings returns non-fatal configuration issues worth logging.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.GitHub.Enabled() && !c.GitLab.Enabled() {
		warnings = append(warnings, "no provider OAuth application configured; OAuth callbacks will fail")
	}
	if c.GitHub.WebhookSecret == "" {
		warnings = append(warnings, "github.webhook_secret is empty; all GitHub webhook deliveries will be rejected")
	}
	if c.GitLab.WebhookSecret == "" {
		warnings = append(warnings, "gitlab.webhook_secret is empty; all GitLab webhook deliveries will be rejected")
	}
	return warnings
}
