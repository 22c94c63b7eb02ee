package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubHelperHandler_Auth(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(CreateTestRequest(http.MethodGet, "/github/auth?redirectUri=http://localhost/cb", nil))
	require.Equal(t, http.StatusOK, w.Code)

	u, err := url.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_uri"))
}

func TestGitHubHelperHandler_Token(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(CreateTestRequest(http.MethodGet, "/github/token?code="+goodCode+"&redirectUri=http://localhost/cb", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fresh-token", w.Body.String())

	w = env.serve(CreateTestRequest(http.MethodGet, "/github/token?code=bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_verification_code")

	w = env.serve(CreateTestRequest(http.MethodGet, "/github/token", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGitHubHelperHandler_Code(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(CreateTestRequest(http.MethodGet, "/github/code?repositoryUrl="+url.QueryEscape(testRepoURL+".git")+"&accessToken=tok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testListing, w.Body.String())

	w = env.serve(CreateTestRequest(http.MethodGet, "/github/code?repositoryUrl="+url.QueryEscape("https://github.com/acme/missing")+"&accessToken=tok", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Not Found")

	w = env.serve(CreateTestRequest(http.MethodGet, "/github/code?repositoryUrl="+url.QueryEscape(testGitLabRepo)+"&accessToken=tok", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.serve(CreateTestRequest(http.MethodGet, "/github/code?accessToken=tok", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
