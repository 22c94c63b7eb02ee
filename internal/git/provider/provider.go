// Package provider defines the contract shared by the git hosting providers
// and the errors they return.
package provider

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/verustcode/codesync/pkg/telemetry"
)

// Operations reported in ProviderError and metrics
const (
	OpExchangeCode = "exchange_code"
	OpFetchContent = "fetch_content"
)

// Provider is one OAuth2 + repository content API. Implementations own their
// URL-building rules so callers stay provider-agnostic.
type Provider interface {
	// Name returns the provider name (github, gitlab)
	Name() string

	// AuthorizationURL builds the consent URL for redirectURI. It performs
	// no network call.
	AuthorizationURL(redirectURI string) string

	// ExchangeCode trades an authorization code for an access token with a
	// single request. Codes are single-use, so it never retries.
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)

	// FetchRepositoryContent returns the raw API response body describing the
	// repository content. branch may be empty.
	FetchRepositoryContent(ctx context.Context, repositoryURL, accessToken, branch string) ([]byte, error)

	// MatchesURL reports whether repositoryURL belongs to this provider
	MatchesURL(repositoryURL string) bool
}

// ErrUnsupportedProvider is returned for repository URLs no provider matches.
var ErrUnsupportedProvider = errors.New("unsupported repository provider")

// ProviderError is a failed provider call: a non-2xx response or a
// transport failure.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	// Body is the upstream response body, if any
	Body    string
	Timeout bool
	Err     error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("[" + e.Provider + "] " + e.Operation + " failed")
	if e.StatusCode != 0 {
		b.WriteString(": status " + strconv.Itoa(e.StatusCode))
	}
	if e.Timeout {
		b.WriteString(": timeout")
	}
	if e.Body != "" {
		b.WriteString(": " + e.Body)
	} else if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Message returns a short description safe to show to API clients.
func (e *ProviderError) Message() string {
	if e.Body != "" {
		return e.Body
	}
	if e.Timeout {
		return e.Provider + " did not respond in time"
	}
	if e.StatusCode != 0 {
		return e.Provider + " returned status " + strconv.Itoa(e.StatusCode)
	}
	return e.Provider + " is unreachable"
}

// NewTransportError wraps a failure that produced no HTTP response.
func NewTransportError(provider, op string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Operation: op,
		Timeout:   IsTimeout(err),
		Err:       err,
	}
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Observe records the latency and outcome of one provider call.
func Observe(ctx context.Context, provider, op string, start time.Time, err error) {
	telemetry.GetMetrics().RecordProviderCall(ctx, provider, op, err == nil, time.Since(start).Seconds())
}
