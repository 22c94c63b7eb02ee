package syncer

import "errors"

var (
	// ErrProjectNotFound is returned when the target project does not exist
	ErrProjectNotFound = errors.New("project not found")
	// ErrUserNotFound is returned when a webhook sender maps to no local user
	ErrUserNotFound = errors.New("user not found")
	// ErrMissingCredential is returned when the owner has no token for the
	// repository's provider
	ErrMissingCredential = errors.New("no access token for provider")
	// ErrNoRepository is returned when a project has no linked repository
	ErrNoRepository = errors.New("project has no linked repository")
	// ErrQueueFull is returned when the sync queue is at capacity
	ErrQueueFull = errors.New("sync queue is full")
	// ErrStopped is returned once the syncer is shutting down
	ErrStopped = errors.New("syncer stopped")
)
