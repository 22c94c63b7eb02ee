// Package github implements the provider interface for GitHub.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/pkg/logger"
)

const (
	defaultWebURL = "https://github.com"
	defaultAPIURL = "https://api.github.com/"

	// scope requested on the consent screen
	oauthScope = "repo"

	defaultTimeout = 30 * time.Second
)

// Options configures a Provider. Empty URLs fall back to public GitHub.
type Options struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	APIURL       string
	WebURL       string
	HTTPClient   *http.Client
}

// Provider talks to the GitHub OAuth and REST APIs
type Provider struct {
	oauth      oauth2.Config
	apiURL     *url.URL
	webURL     string
	httpClient *http.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a GitHub provider
func New(opts Options) (*Provider, error) {
	endpoint := githuboauth.Endpoint
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	// Credentials go in the body. Auto-detection would retry the exchange with
	// a second style on failure and burn the single-use code.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiRaw := opts.APIURL
	if apiRaw == "" {
		apiRaw = defaultAPIURL
	}
	if !strings.HasSuffix(apiRaw, "/") {
		apiRaw += "/"
	}
	apiURL, err := url.Parse(apiRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url %q: %w", opts.APIURL, err)
	}

	webURL := opts.WebURL
	if webURL == "" {
		webURL = defaultWebURL
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &Provider{
		oauth: oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oauthScope},
		},
		apiURL:     apiURL,
		webURL:     strings.TrimRight(provider.NormalizeURL(webURL), "/"),
		httpClient: hc,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return consts.ProviderGitHub
}

// MatchesURL reports whether the repository is hosted on this GitHub
func (p *Provider) MatchesURL(repositoryURL string) bool {
	return provider.HasPrefixURL(provider.NormalizeURL(repositoryURL), p.webURL)
}

// AuthorizationURL builds the GitHub consent URL
func (p *Provider) AuthorizationURL(redirectURI string) string {
	cfg := p.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for an access token
func (p *Provider) ExchangeCode(ctx context.Context, code, redirectURI string) (token string, err error) {
	start := time.Now()
	defer func() { provider.Observe(ctx, p.Name(), provider.OpExchangeCode, start, err) }()

	cfg := p.oauth
	cfg.RedirectURL = redirectURI

	tok, err := cfg.Exchange(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), code)
	if err != nil {
		logger.Warn("GitHub code exchange failed", zap.Error(err))
		return "", p.oauthError(err)
	}
	return tok.AccessToken, nil
}

func (p *Provider) oauthError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		pe := &provider.ProviderError{
			Provider:  p.Name(),
			Operation: provider.OpExchangeCode,
			Body:      string(re.Body),
			Err:       err,
		}
		if re.Response != nil {
			pe.StatusCode = re.Response.StatusCode
		}
		return pe
	}
	return provider.NewTransportError(p.Name(), provider.OpExchangeCode, err)
}

// ContentsPath maps a repository web URL to its contents API path,
// https://github.com/acme/widgets -> repos/acme/widgets/contents.
func (p *Provider) ContentsPath(repositoryURL string) (string, error) {
	normalized := provider.NormalizeURL(repositoryURL)
	if !provider.HasPrefixURL(normalized, p.webURL) {
		return "", fmt.Errorf("%w: %s", provider.ErrUnsupportedProvider, repositoryURL)
	}
	repoPath := provider.RepoPath(normalized, p.webURL)
	if strings.Count(repoPath, "/") != 1 {
		return "", fmt.Errorf("github repository url must be owner/repo: %s", repositoryURL)
	}
	return "repos/" + repoPath + "/contents", nil
}

// FetchRepositoryContent returns the raw contents listing of the repository
// root. An empty branch reads the repository's default branch.
func (p *Provider) FetchRepositoryContent(ctx context.Context, repositoryURL, accessToken, branch string) (content []byte, err error) {
	path, err := p.ContentsPath(repositoryURL)
	if err != nil {
		return nil, err
	}
	if branch != "" {
		path += "?ref=" + url.QueryEscape(branch)
	}

	start := time.Now()
	defer func() { provider.Observe(ctx, p.Name(), provider.OpFetchContent, start, err) }()

	client := p.newClient(ctx, accessToken)
	req, err := client.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("build github request: %w", err)
	}

	var buf bytes.Buffer
	resp, err := client.Do(ctx, req, &buf)
	if err != nil {
		return nil, p.apiError(resp, err)
	}

	logger.Debug("Fetched GitHub repository content",
		zap.String("path", path),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func (p *Provider) newClient(ctx context.Context, accessToken string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), ts)
	hc.Timeout = p.httpClient.Timeout

	client := github.NewClient(hc)
	client.BaseURL = p.apiURL
	return client
}

func (p *Provider) apiError(resp *github.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return provider.NewTransportError(p.Name(), provider.OpFetchContent, err)
	}
	pe := &provider.ProviderError{
		Provider:   p.Name(),
		Operation:  provider.OpFetchContent,
		StatusCode: resp.StatusCode,
		Err:        err,
	}
	// go-github re-populates the body after decoding the error
	if resp.Body != nil {
		if body, readErr := io.ReadAll(resp.Body); readErr == nil {
			pe.Body = strings.TrimSpace(string(body))
		}
	}
	var er *github.ErrorResponse
	if pe.Body == "" && errors.As(err, &er) {
		pe.Body = er.Message
	}
	return pe
}

// ParseWebhook decodes a GitHub webhook body. eventType is the
// X-GitHub-Event header; when it is empty the body is treated as a push.
func (p *Provider) ParseWebhook(eventType string, body []byte) (*provider.WebhookEvent, error) {
	event := &provider.WebhookEvent{
		Provider:   p.Name(),
		RawPayload: body,
	}

	switch eventType {
	case "ping":
		event.Type = provider.EventTypePing
		return event, nil
	case "push", "":
	default:
		event.Type = provider.EventTypeOther
		return event, nil
	}

	var payload github.PushEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode github push event: %w", err)
	}
	repoURL := payload.GetRepo().GetHTMLURL()
	if repoURL == "" {
		return nil, errors.New("github push event has no repository.html_url")
	}

	event.Type = provider.EventTypePush
	event.RepositoryURL = provider.NormalizeURL(repoURL)
	event.Branch = strings.TrimPrefix(payload.GetRef(), "refs/heads/")
	event.CommitSHA = payload.GetAfter()
	event.Senders = nonEmpty(payload.GetSender().GetLogin(), payload.GetPusher().GetEmail())
	return event, nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
