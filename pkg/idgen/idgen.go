// Package idgen generates identifiers used across the service.
package idgen

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/rs/xid"
)

// NewID returns a globally unique, time-sortable, URL-safe 20 character id.
func NewID() string {
	return xid.New().String()
}

// NewTaskID returns an id for a queued sync task.
func NewTaskID() string {
	return "sync-" + NewID()
}

// NewRequestID returns an id for HTTP request tracking.
func NewRequestID() string {
	return NewID()
}

// NewSecureSecret returns a cryptographically random URL-safe string of the
// given length, suitable for JWT or webhook secrets.
func NewSecureSecret(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	raw := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
