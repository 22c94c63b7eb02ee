// Package webhook authenticates incoming provider webhooks.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/go-github/v57/github"
)

// Header names carrying webhook credentials
const (
	HeaderGitHubSignature = "X-Hub-Signature-256"
	HeaderGitHubEvent     = "X-GitHub-Event"
	HeaderGitLabToken     = "X-Gitlab-Token"
	HeaderGitLabEvent     = "X-Gitlab-Event"

	signaturePrefix = "sha256="
)

// ErrInvalidSignature is returned when a webhook fails authentication.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Sign returns the GitHub-style signature of payload: "sha256=" followed by
// the lowercase hex HMAC-SHA256 digest.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches payload under secret.
// Only sha256 signatures are accepted. Malformed or missing signatures and
// an empty secret never verify.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" || !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	return github.ValidateSignature(signature, payload, []byte(secret)) == nil
}

// VerifyToken compares a GitLab X-Gitlab-Token header with the configured
// secret in constant time. An empty secret never verifies.
func VerifyToken(token, secret string) bool {
	if secret == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
