package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/verustcode/codesync/internal/model"
)

func TestUserHandler_Register(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(CreateTestRequest(http.MethodPost, "/api/users/register", gin.H{
		"email":    "Alice@X.com",
		"password": "s3cret-pass",
	}))
	AssertJSONResponse(t, w, http.StatusCreated, gin.H{
		"email":            "alice@x.com",
		"role":             model.RoleUser,
		"github_connected": false,
	})

	stored, err := env.store.User().GetByEmail("alice@x.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))
	assert.NotContains(t, w.Body.String(), stored.PasswordHash)
}

func TestUserHandler_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.user("taken@x.com")

	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"missing password", gin.H{"email": "a@x.com"}, http.StatusBadRequest},
		{"invalid email", gin.H{"email": "nope", "password": "s3cret-pass"}, http.StatusBadRequest},
		{"unknown role", gin.H{"email": "a@x.com", "password": "s3cret-pass", "role": "ROOT"}, http.StatusBadRequest},
		{"duplicate", gin.H{"email": "taken@x.com", "password": "s3cret-pass"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.serve(CreateTestRequest(http.MethodPost, "/api/users/register", tt.body))
			AssertErrorResponse(t, w, tt.status, "")
		})
	}
}

func TestUserHandler_RegisterAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(CreateTestRequest(http.MethodPost, "/api/users/register", gin.H{
		"email": "root@x.com", "password": "s3cret-pass", "role": "admin",
	}))
	AssertJSONResponse(t, w, http.StatusCreated, gin.H{"role": model.RoleAdmin})
}

func TestUserHandler_Login(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	env.user("alice@x.com", func(u *model.User) { u.PasswordHash = string(hash) })

	t.Run("success", func(t *testing.T) {
		w := env.serve(CreateTestRequest(http.MethodPost, "/api/users/login", gin.H{
			"email": "alice@x.com", "password": "s3cret-pass",
		}))
		require.Equal(t, http.StatusOK, w.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		identity, err := env.tokens.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice@x.com", identity.Email)
		assert.Equal(t, model.RoleUser, identity.Role)
		assert.NotEmpty(t, resp.ExpiresAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := env.serve(CreateTestRequest(http.MethodPost, "/api/users/login", gin.H{
			"email": "alice@x.com", "password": "wrong",
		}))
		AssertErrorResponse(t, w, http.StatusUnauthorized, "E1005")
	})

	t.Run("unknown user", func(t *testing.T) {
		w := env.serve(CreateTestRequest(http.MethodPost, "/api/users/login", gin.H{
			"email": "nobody@x.com", "password": "s3cret-pass",
		}))
		AssertErrorResponse(t, w, http.StatusUnauthorized, "E1005")
	})
}

func TestUserHandler_Me(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("alice@x.com", withGitHubToken("gho_secret"))

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/users/me", nil), token))
	AssertJSONResponse(t, w, http.StatusOK, gin.H{
		"email":            "alice@x.com",
		"github_connected": true,
		"gitlab_connected": false,
	})
	assert.NotContains(t, w.Body.String(), "gho_secret")

	w = env.serve(CreateTestRequest(http.MethodGet, "/api/users/me", nil))
	AssertErrorResponse(t, w, http.StatusUnauthorized, "")
}

func TestUserHandler_MeDeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	token, _, err := env.tokens.Issue("ghost@x.com", model.RoleUser)
	require.NoError(t, err)

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/users/me", nil), token))
	AssertErrorResponse(t, w, http.StatusUnauthorized, "E1005")
}
