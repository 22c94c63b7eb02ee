// Package gitlab implements the provider interface for GitLab.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gitlaboauth "golang.org/x/oauth2/gitlab"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/pkg/logger"
)

const (
	defaultWebURL = "https://gitlab.com"
	defaultAPIURL = "https://gitlab.com/api/v4"

	oauthScope = "read_repository"

	defaultTimeout = 30 * time.Second
)

// Options configures a Provider. Empty URLs fall back to gitlab.com.
type Options struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	APIURL       string
	WebURL       string
	// DefaultBranch is used when a fetch names no branch; the files API
	// requires a ref.
	DefaultBranch string
	HTTPClient    *http.Client
}

// Provider talks to the GitLab OAuth and REST APIs
type Provider struct {
	oauth         oauth2.Config
	apiURL        string
	webURL        string
	defaultBranch string
	httpClient    *http.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a GitLab provider
func New(opts Options) (*Provider, error) {
	endpoint := gitlaboauth.Endpoint
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	webURL := opts.WebURL
	if webURL == "" {
		webURL = defaultWebURL
	}
	branch := opts.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	// Fail at startup instead of on the first sync
	if _, err := gitlab.NewOAuthClient("", gitlab.WithBaseURL(apiURL)); err != nil {
		return nil, fmt.Errorf("invalid gitlab api url %q: %w", apiURL, err)
	}

	return &Provider{
		oauth: oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oauthScope},
		},
		apiURL:        apiURL,
		webURL:        strings.TrimRight(provider.NormalizeURL(webURL), "/"),
		defaultBranch: branch,
		httpClient:    hc,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return consts.ProviderGitLab
}

// MatchesURL reports whether the repository is hosted on this GitLab
func (p *Provider) MatchesURL(repositoryURL string) bool {
	return provider.HasPrefixURL(provider.NormalizeURL(repositoryURL), p.webURL)
}

// AuthorizationURL builds the GitLab consent URL
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
		logger.Warn("GitLab code exchange failed", zap.Error(err))
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
			return "", pe
		}
		return "", provider.NewTransportError(p.Name(), provider.OpExchangeCode, err)
	}
	return tok.AccessToken, nil
}

// ExtractProjectPath returns the namespaced project path of a repository URL,
// https://gitlab.com/group/sub/project.git -> group/sub/project.
func (p *Provider) ExtractProjectPath(repositoryURL string) (string, error) {
	normalized := provider.NormalizeURL(repositoryURL)
	if !provider.HasPrefixURL(normalized, p.webURL) {
		return "", fmt.Errorf("%w: %s", provider.ErrUnsupportedProvider, repositoryURL)
	}
	path := provider.RepoPath(normalized, p.webURL)
	if !strings.Contains(path, "/") {
		return "", fmt.Errorf("gitlab repository url must include a namespace: %s", repositoryURL)
	}
	return path, nil
}

// EncodeProjectPath escapes a project path for use as a single API path
// segment.
func EncodeProjectPath(path string) string {
	return strings.ReplaceAll(path, "/", "%2F")
}

type filesOptions struct {
	Ref string `url:"ref,omitempty"`
}

// FetchRepositoryContent returns the raw repository files response for
// branch, or for the configured default branch when branch is empty.
func (p *Provider) FetchRepositoryContent(ctx context.Context, repositoryURL, accessToken, branch string) (content []byte, err error) {
	projectPath, err := p.ExtractProjectPath(repositoryURL)
	if err != nil {
		return nil, err
	}
	if branch == "" {
		branch = p.defaultBranch
	}

	start := time.Now()
	defer func() { provider.Observe(ctx, p.Name(), provider.OpFetchContent, start, err) }()

	client, err := gitlab.NewOAuthClient(accessToken,
		gitlab.WithBaseURL(p.apiURL),
		gitlab.WithHTTPClient(p.httpClient),
		gitlab.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}

	path := "projects/" + EncodeProjectPath(projectPath) + "/repository/files"
	req, err := client.NewRequest(http.MethodGet, path, &filesOptions{Ref: branch}, []gitlab.RequestOptionFunc{gitlab.WithContext(ctx)})
	if err != nil {
		return nil, fmt.Errorf("build gitlab request: %w", err)
	}

	var buf bytes.Buffer
	resp, err := client.Do(req, &buf)
	if err != nil {
		return nil, p.apiError(resp, err)
	}

	logger.Debug("Fetched GitLab repository content",
		zap.String("project", projectPath),
		zap.String("ref", branch),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func (p *Provider) apiError(resp *gitlab.Response, err error) error {
	var er *gitlab.ErrorResponse
	if errors.As(err, &er) {
		pe := &provider.ProviderError{
			Provider:  p.Name(),
			Operation: provider.OpFetchContent,
			Body:      strings.TrimSpace(string(er.Body)),
			Err:       err,
		}
		if er.Response != nil {
			pe.StatusCode = er.Response.StatusCode
		}
		if pe.Body == "" {
			pe.Body = er.Message
		}
		return pe
	}
	if resp != nil && resp.Response != nil {
		return &provider.ProviderError{
			Provider:   p.Name(),
			Operation:  provider.OpFetchContent,
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return provider.NewTransportError(p.Name(), provider.OpFetchContent, err)
}

type pushPayload struct {
	ObjectKind   string `json:"object_kind"`
	Ref          string `json:"ref"`
	After        string `json:"after"`
	UserEmail    string `json:"user_email"`
	UserUsername string `json:"user_username"`
	User         struct {
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"user"`
	Project struct {
		WebURL     string `json:"web_url"`
		HTTPURL    string `json:"http_url"`
		GitHTTPURL string `json:"git_http_url"`
	} `json:"project"`
}

// ParseWebhook decodes a GitLab webhook body. eventType is the
// X-Gitlab-Event header; when it is empty object_kind decides.
func (p *Provider) ParseWebhook(eventType string, body []byte) (*provider.WebhookEvent, error) {
	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode gitlab webhook: %w", err)
	}

	event := &provider.WebhookEvent{
		Provider:   p.Name(),
		Type:       provider.EventTypeOther,
		RawPayload: body,
	}
	isPush := gitlab.EventType(eventType) == gitlab.EventTypePush ||
		(eventType == "" && (payload.ObjectKind == "push" || payload.ObjectKind == ""))
	if !isPush {
		return event, nil
	}

	repoURL := firstNonEmpty(payload.Project.WebURL, payload.Project.HTTPURL, payload.Project.GitHTTPURL)
	if repoURL == "" {
		return nil, errors.New("gitlab push event has no project url")
	}

	event.Type = provider.EventTypePush
	event.RepositoryURL = provider.NormalizeURL(repoURL)
	event.Branch = strings.TrimPrefix(payload.Ref, "refs/heads/")
	event.CommitSHA = payload.After
	for _, s := range []string{payload.UserEmail, payload.User.Email, payload.UserUsername, payload.User.Username} {
		if s != "" {
			event.Senders = append(event.Senders, s)
		}
	}
	return event, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
