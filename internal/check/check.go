// Package check implements the `codesync check` command: it makes sure a
// config file exists, validates it, and looks for the browser PDF export
// renders with.
package check

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/config"
	"github.com/verustcode/codesync/pkg/errors"
)

// CheckResult is the outcome of a non-interactive check
type CheckResult struct {
	// Success is false when the server would refuse to start
	Success     bool
	Errors      []string
	Warnings    []string
	Suggestions []string
}

func (r *CheckResult) fail(msg, suggestion string) {
	r.Success = false
	r.Errors = append(r.Errors, msg)
	if suggestion != "" {
		r.Suggestions = append(r.Suggestions, suggestion)
	}
}

// Checker runs the environment check against one config file
type Checker struct {
	configPath string
	report     *Report
	theme      *huh.Theme
	// confirm asks before the template is written
	confirm func(path string) (bool, error)
	// lookBrowser locates the PDF export browser
	lookBrowser func() (string, error)
}

// NewChecker creates a checker for the config file at configPath. An empty
// path means config.DefaultPath.
func NewChecker(configPath string) *Checker {
	if configPath == "" {
		configPath = config.DefaultPath
	}
	c := &Checker{
		configPath:  configPath,
		report:      NewReport(),
		theme:       huh.ThemeCharm(),
		lookBrowser: findBrowser,
	}
	c.confirm = c.confirmCreate
	return c
}

// ConfigPath returns the checked config file path
func (c *Checker) ConfigPath() string {
	return c.configPath
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
)

// Run is the interactive check. A missing config file can be created from
// the embedded template. It fails when the config would not let the server
// start.
func (c *Checker) Run() error {
	fmt.Println(titleStyle.Render(consts.ProjectName + " environment check"))

	steps := []struct {
		title string
		run   func() error
	}{
		{"Config file", c.checkConfigFile},
		{"Config values", func() error {
			v := c.validateConfig()
			printItems(c.report.addValidation("config", v))
			if !v.Valid {
				return fmt.Errorf("config validation failed: %w", v.Error)
			}
			return nil
		}},
		{"PDF export", func() error {
			printItems(c.report.addValidation("pdf", c.validateBrowser()))
			return nil
		}},
	}

	var failed error
	for i, step := range steps {
		fmt.Println(sectionStyle.Render(step.title + "..."))
		err := step.run()
		fmt.Println()
		if err == nil {
			continue
		}
		// Nothing after the file step makes sense without a readable file
		if i == 0 {
			return fmt.Errorf("file check failed: %w", err)
		}
		if failed == nil {
			failed = err
		}
	}

	c.report.Print()
	return failed
}

func (c *Checker) confirmCreate(path string) (bool, error) {
	var yes bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%s is missing. Write the default template there?", path)).
			Affirmative("Create").
			Negative("Skip").
			Value(&yes),
	)).WithTheme(c.theme).Run()
	return yes, err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// RunNonInteractive is the CI variant of Run. It never prompts and never
// writes files.
func (c *Checker) RunNonInteractive() *CheckResult {
	res := &CheckResult{Success: true}

	if !fileExists(c.configPath) {
		res.fail("Configuration not found: "+c.configPath,
			fmt.Sprintf("Run '%s check --config %s' to create it from the template", consts.ServiceName, c.configPath))
		return res
	}

	v := c.validateConfig()
	if !v.Valid {
		for _, problem := range configProblems(v.Error) {
			res.fail(fmt.Sprintf("Invalid %s: %s", c.configPath, problem), "")
		}
		res.Suggestions = append(res.Suggestions, fixHint(v.Error, c.configPath))
	}
	res.Warnings = append(res.Warnings, v.Warnings...)
	res.Warnings = append(res.Warnings, c.validateBrowser().Warnings...)
	return res
}

// configProblems splits a validation error into one line per field
func configProblems(err error) []string {
	if appErr, ok := errors.AsAppError(err); ok {
		if list, ok := appErr.Details.([]string); ok && len(list) > 0 {
			return list
		}
		return []string{appErr.Message}
	}
	return []string{err.Error()}
}

func fixHint(err error, path string) string {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeJWTSecretInvalid {
		return fmt.Sprintf("Set auth.jwt_secret or CS_JWT_SECRET to at least %d characters", config.MinJWTSecretLength)
	}
	return "Correct the fields above in " + path
}

// PrintCheckResult prints a CheckResult for CI logs
func PrintCheckResult(result *CheckResult) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if result.Success {
		color.New(color.FgGreen).Println("[OK] Environment check passed")
	} else {
		red.Println("[ERROR] Environment check failed")
		for _, e := range result.Errors {
			red.Printf("  ✗ %s\n", e)
		}
	}

	if len(result.Warnings) > 0 {
		yellow.Println("[WARNING] Configuration warnings:")
		for _, w := range result.Warnings {
			yellow.Printf("  ⚠ %s\n", w)
		}
	}

	if len(result.Suggestions) > 0 {
		color.New(color.FgCyan).Println("To fix these issues:")
		for _, s := range result.Suggestions {
			fmt.Printf("  → %s\n", s)
		}
	}
}
