package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/codesync/internal/model"
)

func decodeProject(t *testing.T, body []byte) model.Project {
	t.Helper()
	var p model.Project
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func TestProjectHandler_CreateWithFile(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.user("alice@x.com")

	req := CreateMultipartRequest(t, http.MethodPost, "/api/projects",
		map[string]string{"projectName": "demo", "email": "alice@x.com"},
		&FormFile{Field: "projectFile", Filename: "main.go", ContentType: "text/plain; charset=utf-8", Content: []byte("package main\n")},
	)
	w := env.serve(WithBearer(req, token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeProject(t, w.Body.Bytes())
	assert.Equal(t, "demo", created.Name)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, "package main\n", created.Code)
	assert.NotNil(t, created.UploadDate)
	assert.Empty(t, created.GitRepositoryURL)
	assert.Zero(t, env.reportCount(created.ID))
}

func TestProjectHandler_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.user("alice@x.com")

	tests := []struct {
		name   string
		fields map[string]string
		file   *FormFile
		status int
		code   string
	}{
		{
			name:   "missing name",
			fields: map[string]string{"email": "alice@x.com"},
			status: http.StatusBadRequest, code: "E1001",
		},
		{
			name:   "missing email",
			fields: map[string]string{"projectName": "demo"},
			status: http.StatusBadRequest, code: "E1001",
		},
		{
			name:   "binary file",
			fields: map[string]string{"projectName": "demo", "email": "alice@x.com"},
			file:   &FormFile{Field: "projectFile", Filename: "a.bin", ContentType: "application/octet-stream", Content: []byte{0, 1}},
			status: http.StatusUnsupportedMediaType, code: "E1006",
		},
		{
			name:   "unsupported repository",
			fields: map[string]string{"projectName": "demo", "email": "alice@x.com", "gitRepositoryUrl": "https://bitbucket.org/a/b"},
			status: http.StatusBadRequest, code: "E2003",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateMultipartRequest(t, http.MethodPost, "/api/projects", tt.fields, tt.file)
			w := env.serve(WithBearer(req, token))
			AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}

	projects, err := env.store.Project().ListByUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestProjectHandler_CreateOwnership(t *testing.T) {
	env := newTestEnv(t)
	bob, _ := env.user("bob@x.com")
	_, aliceToken := env.user("alice@x.com")
	_, adminToken := env.user("root@x.com", withRole(model.RoleAdmin))

	fields := map[string]string{"projectName": "demo", "email": "bob@x.com"}

	w := env.serve(WithBearer(CreateMultipartRequest(t, http.MethodPost, "/api/projects", fields, nil), aliceToken))
	AssertErrorResponse(t, w, http.StatusForbidden, "E1004")
	projects, err := env.store.Project().ListByUser(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)

	w = env.serve(WithBearer(CreateMultipartRequest(t, http.MethodPost, "/api/projects", fields, nil), adminToken))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, bob.ID, decodeProject(t, w.Body.Bytes()).UserID)

	fields["email"] = "ghost@x.com"
	w = env.serve(WithBearer(CreateMultipartRequest(t, http.MethodPost, "/api/projects", fields, nil), adminToken))
	AssertErrorResponse(t, w, http.StatusNotFound, "E3002")
}

func TestProjectHandler_CreateLinkedSyncs(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("alice@x.com", withGitHubToken("gho_alice"))

	req := CreateMultipartRequest(t, http.MethodPost, "/api/projects",
		map[string]string{"projectName": "widgets", "email": "alice@x.com", "gitRepositoryUrl": "https://GitHub.com/acme/widgets.git/"},
		nil,
	)
	w := env.serve(WithBearer(req, token))
	require.Equal(t, http.StatusCreated, w.Code)

	created := decodeProject(t, w.Body.Bytes())
	assert.Equal(t, testRepoURL, created.GitRepositoryURL)

	reports := env.waitReports(created.ID, 1)
	assert.Equal(t, model.TriggerCreate, reports[0].Trigger)
	assert.Equal(t, model.ReportStatusCompleted, reports[0].Status)

	stored, err := env.store.Project().GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, testListing, stored.Code)
}

func TestProjectHandler_CreateLinkedWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("alice@x.com")

	req := CreateMultipartRequest(t, http.MethodPost, "/api/projects",
		map[string]string{"projectName": "widgets", "email": "alice@x.com", "gitRepositoryUrl": testRepoURL},
		nil,
	)
	w := env.serve(WithBearer(req, token))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, env.reportCount(decodeProject(t, w.Body.Bytes()).ID))
}

func TestProjectHandler_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.user("alice@x.com")
	bob, bobToken := env.user("bob@x.com")
	mine := createProject(t, env, alice.ID, "", "secret code")
	theirs := createProject(t, env, bob.ID, "", "")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/projects", nil), aliceToken))
	AssertJSONResponse(t, w, http.StatusOK, gin.H{"total": 1})
	assert.NotContains(t, w.Body.String(), "secret code")

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/projects/%d", mine.ID), nil), aliceToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret code", decodeProject(t, w.Body.Bytes()).Code)

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/projects/%d", mine.ID), nil), bobToken))
	AssertErrorResponse(t, w, http.StatusNotFound, "E3001")

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/projects/%d", theirs.ID), nil), bobToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/projects/abc", nil), bobToken))
	AssertErrorResponse(t, w, http.StatusBadRequest, "E1001")

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/projects/9999", nil), bobToken))
	AssertErrorResponse(t, w, http.StatusNotFound, "E3001")
}

func TestProjectHandler_Sync(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user("alice@x.com", withGitHubToken("gho_alice"))
	linked := createProject(t, env, alice.ID, testRepoURL, "")
	unlinked := createProject(t, env, alice.ID, "", "code")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodPost, fmt.Sprintf("/api/projects/%d/sync", linked.ID), nil), token))
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["task_id"])

	reports := env.waitReports(linked.ID, 1)
	assert.Equal(t, model.TriggerManual, reports[0].Trigger)

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/projects/%d/reports", linked.ID), nil), token))
	AssertJSONResponse(t, w, http.StatusOK, gin.H{"total": 1})

	w = env.serve(WithBearer(CreateTestRequest(http.MethodPost, fmt.Sprintf("/api/projects/%d/sync", unlinked.ID), nil), token))
	AssertErrorResponse(t, w, http.StatusBadRequest, "E1001")
}

func TestProjectHandler_SyncMissingCredential(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user("alice@x.com")
	linked := createProject(t, env, alice.ID, testRepoURL, "")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodPost, fmt.Sprintf("/api/projects/%d/sync", linked.ID), nil), token))
	AssertErrorResponse(t, w, http.StatusBadRequest, "E3003")
	assert.Zero(t, env.reportCount(linked.ID))
}
