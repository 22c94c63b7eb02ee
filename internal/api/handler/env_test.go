package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/verustcode/codesync/internal/api/middleware"
	"github.com/verustcode/codesync/internal/git/github"
	"github.com/verustcode/codesync/internal/git/gitlab"
	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/report"
	"github.com/verustcode/codesync/internal/report/analyzer"
	"github.com/verustcode/codesync/internal/report/exporter"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/internal/syncer"
)

const (
	testJWTSecret    = "test-jwt-secret-with-at-least-32-bytes!"
	testGitHubSecret = "It's a Secret to Everybody"
	testGitLabSecret = "gitlab-token"
	testRepoURL      = "https://github.com/acme/widgets"
	testGitLabRepo   = "https://gitlab.com/group/project"
	testListing      = `[{"name":"README.md","path":"README.md","type":"file"},{"name":"src","path":"src","type":"dir"}]`
	goodCode         = "good-code"
)

// upstream fakes the GitHub and GitLab token and content endpoints
type upstream struct {
	*httptest.Server

	mu       sync.Mutex
	listing  string
	tokenReq int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{listing: testListing}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) setListing(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listing = s
}

func (u *upstream) tokenRequests() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokenReq
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	listing := u.listing
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/login/oauth/access_token" || r.URL.Path == "/oauth/token":
		u.mu.Lock()
		u.tokenReq++
		u.mu.Unlock()
		_ = r.ParseForm()
		if r.PostForm.Get("code") != goodCode {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"bad_verification_code"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"fresh-token","token_type":"bearer"}`)
	case r.URL.Path == "/repos/acme/widgets/contents":
		fmt.Fprint(w, listing)
	case strings.HasSuffix(r.URL.EscapedPath(), "/projects/group%2Fproject/repository/files"):
		fmt.Fprint(w, listing)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}
}

// testEnv wires real handlers over a temp database and fake upstreams
type testEnv struct {
	t         *testing.T
	store     store.Store
	tokens    *TokenService
	providers *provider.Registry
	github    *github.Provider
	gitlab    *gitlab.Provider
	syncer    *syncer.Syncer
	upstream  *upstream
	router    *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)

	up := newUpstream(t)

	gh, err := github.New(github.Options{
		ClientID:     "cid",
		ClientSecret: "csecret",
		TokenURL:     up.URL + "/login/oauth/access_token",
		APIURL:       up.URL,
		HTTPClient:   up.Client(),
	})
	require.NoError(t, err)
	gl, err := gitlab.New(gitlab.Options{
		ClientID:     "cid",
		ClientSecret: "csecret",
		TokenURL:     up.URL + "/oauth/token",
		APIURL:       up.URL + "/api/v4",
		HTTPClient:   up.Client(),
	})
	require.NoError(t, err)
	registry := provider.NewRegistry(gh, gl)

	an, err := analyzer.New(analyzerName, language.English)
	require.NoError(t, err)
	sy := syncer.New(s, registry, report.NewPipeline(s.Report(), an), syncer.Options{Timeout: 2 * time.Second, Workers: 2})
	sy.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sy.Stop(ctx)
	})

	env := &testEnv{
		t:         t,
		store:     s,
		tokens:    NewTokenService(testJWTSecret, time.Hour),
		providers: registry,
		github:    gh,
		gitlab:    gl,
		syncer:    sy,
		upstream:  up,
	}
	env.router = env.buildRouter()
	return env
}

const analyzerName = "summary"

func (e *testEnv) buildRouter() *gin.Engine {
	r := SetupTestRouter()
	auth := middleware.JWTAuth(e.tokens)

	users := NewUserHandler(e.store, e.tokens, 4)
	helper := NewGitHubHelperHandler(e.github)
	oauth := NewOAuthHandler(e.store, e.providers)
	hooks := NewWebhookHandler(e.syncer, WebhookConfig{
		GitHub:       e.github,
		GitLab:       e.gitlab,
		GitHubSecret: testGitHubSecret,
		GitLabSecret: testGitLabSecret,
	})
	projects := NewProjectHandler(e.store, e.providers, e.syncer)
	reports := NewReportHandler(e.store, exporter.NewDefaultManager(exporter.DefaultPDFOptions()))

	r.GET("/github/auth", helper.Auth)
	r.GET("/github/token", helper.Token)
	r.GET("/github/code", helper.Code)

	r.POST("/api/users/register", users.Register)
	r.POST("/api/users/login", users.Login)
	r.GET("/api/users/me", auth, users.Me)

	r.GET("/api/oauth/:provider/authorize", auth, oauth.Authorize)
	r.GET("/api/oauth/:provider/callback", auth, oauth.Callback)

	r.POST("/api/webhooks/github", hooks.HandleGitHub)
	r.POST("/api/webhooks/gitlab", hooks.HandleGitLab)

	r.POST("/api/projects", auth, projects.Create)
	r.GET("/api/projects", auth, projects.List)
	r.GET("/api/projects/:id", auth, projects.Get)
	r.POST("/api/projects/:id/sync", auth, projects.Sync)
	r.GET("/api/projects/:id/reports", auth, projects.Reports)

	r.GET("/api/reports", auth, reports.List)
	r.GET("/api/reports/:id", auth, reports.Get)
	r.GET("/api/reports/:id/download-html", auth, reports.Download(exporter.ExportFormatHTML))
	r.GET("/api/reports/:id/download-pdf", auth, reports.Download(exporter.ExportFormatPDF))
	r.GET("/api/reports/:id/download-excel", auth, reports.Download(exporter.ExportFormatExcel))
	return r
}

// user creates a user and returns it with a session token
func (e *testEnv) user(email string, overrides ...func(*model.User)) (*model.User, string) {
	e.t.Helper()
	u := store.CreateTestUser(e.t, e.store, email, overrides...)
	token, _, err := e.tokens.Issue(u.Email, u.Role)
	require.NoError(e.t, err)
	return u, token
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	return Serve(e.router, req)
}

// reportCount returns the number of reports of projectID
func (e *testEnv) reportCount(projectID uint) int64 {
	reports, err := e.store.Report().ListByProject(projectID)
	require.NoError(e.t, err)
	return int64(len(reports))
}

// waitReports blocks until projectID has n reports and none is pending
func (e *testEnv) waitReports(projectID uint, n int) []model.Report {
	e.t.Helper()
	var reports []model.Report
	require.Eventually(e.t, func() bool {
		var err error
		reports, err = e.store.Report().ListByProject(projectID)
		if err != nil || len(reports) < n {
			return false
		}
		for _, r := range reports {
			if r.Status == model.ReportStatusPending {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)
	return reports
}

func withGitHubToken(token string) func(*model.User) {
	return func(u *model.User) { u.GitHubAccessToken = token }
}

func withGitLabToken(token string) func(*model.User) {
	return func(u *model.User) { u.GitLabAccessToken = token }
}

func withRole(role string) func(*model.User) {
	return func(u *model.User) { u.Role = role }
}
