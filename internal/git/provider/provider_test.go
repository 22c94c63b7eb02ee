package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
	base string
}

func (f *fakeProvider) Name() string                       { return f.name }
func (f *fakeProvider) AuthorizationURL(string) string     { return f.base + "/login" }
func (f *fakeProvider) MatchesURL(repositoryURL string) bool { return HasPrefixURL(repositoryURL, f.base) }
func (f *fakeProvider) ExchangeCode(context.Context, string, string) (string, error) {
	return "token", nil
}
func (f *fakeProvider) FetchRepositoryContent(context.Context, string, string, string) ([]byte, error) {
	return nil, nil
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://github.com/acme/widgets", "https://github.com/acme/widgets"},
		{"https://github.com/acme/widgets/", "https://github.com/acme/widgets"},
		{"https://github.com/acme/widgets.git", "https://github.com/acme/widgets"},
		{"HTTPS://GitHub.com/acme/Widgets", "https://github.com/acme/Widgets"},
		{"  https://gitlab.com/g/sub/p.git/  ", "https://gitlab.com/g/sub/p"},
		{"https://github.com/acme/widgets?tab=readme#top", "https://github.com/acme/widgets"},
		{"not a url/", "not a url"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestHasPrefixURL(t *testing.T) {
	assert.True(t, HasPrefixURL("https://github.com/acme/widgets", "https://github.com"))
	assert.True(t, HasPrefixURL("https://github.com/acme/widgets", "https://github.com/"))
	assert.False(t, HasPrefixURL("https://github.company.com/acme/widgets", "https://github.com"))
	assert.False(t, HasPrefixURL("https://bitbucket.org/acme/widgets", "https://github.com"))
	assert.False(t, HasPrefixURL("https://github.com/acme", ""))
}

func TestRepoPath(t *testing.T) {
	assert.Equal(t, "acme/widgets", RepoPath("https://github.com/acme/widgets", "https://github.com"))
	assert.Equal(t, "group/sub/project", RepoPath("https://gitlab.com/group/sub/project.git", "https://gitlab.com/"))
}

func TestRegistry_Resolve(t *testing.T) {
	gh := &fakeProvider{name: "github", base: "https://github.com"}
	gl := &fakeProvider{name: "gitlab", base: "https://gitlab.com"}
	r := NewRegistry(gh, gl)

	p, err := r.Resolve("https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "github", p.Name())

	p, err = r.Resolve("https://gitlab.com/g/p")
	require.NoError(t, err)
	assert.Equal(t, "gitlab", p.Name())

	_, err = r.Resolve("https://bitbucket.org/acme/widgets")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	assert.Equal(t, []string{"github", "gitlab"}, r.Names())
}

func TestRegistry_ResolveAmbiguous(t *testing.T) {
	r := NewRegistry(
		&fakeProvider{name: "a", base: "https://git.example.com"},
		&fakeProvider{name: "b", base: "https://git.example.com"},
	)
	_, err := r.Resolve("https://git.example.com/x/y")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(&fakeProvider{name: "github", base: "https://github.com"})

	p, err := r.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "github", p.Name())

	_, err = r.Get("gitea")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestProviderError(t *testing.T) {
	cause := errors.New("boom")
	err := &ProviderError{Provider: "github", Operation: OpExchangeCode, StatusCode: 401, Body: `{"error":"bad_verification_code"}`, Err: cause}

	assert.Equal(t, `[github] exchange_code failed: status 401: {"error":"bad_verification_code"}`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `{"error":"bad_verification_code"}`, err.Message())

	var pe *ProviderError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &pe))
	assert.Equal(t, 401, pe.StatusCode)
}

func TestNewTransportError(t *testing.T) {
	err := NewTransportError("gitlab", OpFetchContent, fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.True(t, err.Timeout)
	assert.Equal(t, "gitlab did not respond in time", err.Message())
	assert.Contains(t, err.Error(), "timeout")

	err = NewTransportError("gitlab", OpFetchContent, errors.New("connection refused"))
	assert.False(t, err.Timeout)
	assert.Equal(t, "gitlab is unreachable", err.Message())
}
