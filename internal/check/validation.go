package check

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/verustcode/codesync/internal/config"
)

// ValidationResult represents the result of a config validation
type ValidationResult struct {
	Path     string
	Valid    bool
	Error    error
	Warnings []string
}

// browserCandidates are looked up on PATH when CHROME_PATH is not set
var browserCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
}

// validateConfig loads and validates the config file
func (c *Checker) validateConfig() ValidationResult {
	path := c.configPath
	result := ValidationResult{Path: path}

	if !fileExists(path) {
		result.Error = fmt.Errorf("file does not exist")
		return result
	}

	cfg, err := config.Load(path)
	if err != nil {
		result.Error = fmt.Errorf("format error: %v", err)
		return result
	}
	if appErr := cfg.Validate(); appErr != nil {
		result.Error = appErr
		return result
	}

	result.Valid = true
	result.Warnings = cfg.Warnings()
	return result
}

// validateBrowser reports whether PDF export can find a browser. A missing
// browser only disables PDF downloads.
func (c *Checker) validateBrowser() ValidationResult {
	result := ValidationResult{Path: "PDF export", Valid: true}

	path, err := c.lookBrowser()
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("headless Chrome not found (%v); PDF downloads will fail", err))
		return result
	}
	result.Path = "PDF export (" + path + ")"
	return result
}

// findBrowser resolves CHROME_PATH or the first known browser on PATH
func findBrowser() (string, error) {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		if fileExists(p) {
			return p, nil
		}
		return "", fmt.Errorf("CHROME_PATH %s does not exist", p)
	}
	for _, name := range browserCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no browser on PATH")
}
