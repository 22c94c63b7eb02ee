// Package consts defines cross-module constants used throughout the application.
package consts

import (
	"sync"
	"time"
)

// ServiceName is the application service name
const ServiceName = "codesync"

const (
	// ProjectName is the display name of the project
	ProjectName = "CodeSync"

	// ProjectURL is the project repository URL
	ProjectURL = "https://github.com/verustcode/codesync"
)

// Provider names
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// Build information, set via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	startedAt   time.Time
	startedOnce sync.Once
)

// SetStartedAt records the server start time; later calls are ignored.
func SetStartedAt(t time.Time) {
	startedOnce.Do(func() {
		startedAt = t
	})
}

// GetUptime returns the duration since the server started
func GetUptime() time.Duration {
	if startedAt.IsZero() {
		return 0
	}
	return time.Since(startedAt)
}
