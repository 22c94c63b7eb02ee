package check

import (
	"fmt"
	"os"

	"github.com/verustcode/codesync/internal/configfiles"
)

// FileCheckResult is the outcome of looking for the config file
type FileCheckResult struct {
	Path    string
	Exists  bool
	Created bool
	Error   error
}

// checkConfigFile looks for the config file and, when it is missing and
// the user agrees, writes the embedded template in its place. Only a
// failure to ask or to write is returned as an error.
func (c *Checker) checkConfigFile() error {
	res := c.ensureConfigFile()
	printItems(c.report.addFile(res))
	return res.Error
}

func (c *Checker) ensureConfigFile() FileCheckResult {
	res := FileCheckResult{Path: c.configPath}
	if fileExists(c.configPath) {
		res.Exists = true
		return res
	}

	ok, err := c.confirm(c.configPath)
	if err != nil {
		res.Error = fmt.Errorf("failed to get user confirmation: %w", err)
		return res
	}
	if !ok {
		return res
	}

	if err := ensureDir(c.configPath); err != nil {
		res.Error = err
		return res
	}
	// The template references secrets, keep it private to the owner
	if err := os.WriteFile(c.configPath, configfiles.GetConfigExample(), 0600); err != nil {
		res.Error = fmt.Errorf("failed to write %s: %w", c.configPath, err)
		return res
	}
	res.Exists, res.Created = true, true
	return res
}
