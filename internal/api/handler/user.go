package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/api/middleware"
	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/logger"
)

// UserHandler handles account registration, login and the current user
type UserHandler struct {
	store      store.Store
	tokens     *TokenService
	bcryptCost int
}

// NewUserHandler creates a new user handler
func NewUserHandler(s store.Store, tokens *TokenService, bcryptCost int) *UserHandler {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserHandler{store: s, tokens: tokens, bcryptCost: bcryptCost}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// UserResponse describes a user without credentials
type UserResponse struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	GitHubConnected bool      `json:"github_connected"`
	GitLabConnected bool      `json:"gitlab_connected"`
	CreatedAt       time.Time `json:"created_at"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Role:            u.Role,
		GitHubConnected: u.AccessToken(consts.ProviderGitHub) != "",
		GitLabConnected: u.AccessToken(consts.ProviderGitLab) != "",
		CreatedAt:       u.CreatedAt,
	}
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Invalid request body",
		})
		return
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Unknown role: " + req.Role,
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		respondError(c, errors.ErrInternal("Failed to hash password", err))
		return
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := h.store.User().Create(user); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("User registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Invalid request body",
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.store.User().GetByEmail(email)
	if err != nil && !store.IsNotFound(err) {
		respondError(c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		logger.Warn("Invalid login attempt", zap.String("email", email))
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Invalid email or password",
		})
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.Email, user.Role)
	if err != nil {
		logger.Error("Failed to generate JWT token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Failed to generate token",
		})
		return
	}

	logger.Info("User logged in", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

// currentUser loads the user behind the request's token. It writes a 401
// and returns false when the account no longer exists.
func currentUser(c *gin.Context, s store.Store) (*model.User, bool) {
	email := middleware.CurrentEmail(c)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Not authenticated",
		})
		return nil, false
	}
	user, err := s.User().GetByEmail(email)
	if err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    errors.ErrCodeUnauthorized,
				"message": "Account no longer exists",
			})
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return user, true
}
