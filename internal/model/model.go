// Package model defines the persisted entities.
package model

import (
	"time"

	"github.com/verustcode/codesync/consts"
)

// Roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is an account of the application. Provider access tokens are opaque
// bearer strings written only after a completed OAuth exchange.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email        string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         string `gorm:"size:50;not null;default:USER" json:"role"`

	GitHubAccessToken string `gorm:"column:github_access_token;size:1024" json:"-"`
	GitLabAccessToken string `gorm:"column:gitlab_access_token;size:1024" json:"-"`
}

// AccessToken returns the stored token for a provider, or "".
func (u *User) AccessToken(provider string) string {
	switch provider {
	case consts.ProviderGitHub:
		return u.GitHubAccessToken
	case consts.ProviderGitLab:
		return u.GitLabAccessToken
	}
	return ""
}

// TokenColumn returns the column holding the provider's access token.
func TokenColumn(provider string) (string, bool) {
	switch provider {
	case consts.ProviderGitHub:
		return "github_access_token", true
	case consts.ProviderGitLab:
		return "gitlab_access_token", true
	}
	return "", false
}

// Project is a unit of source code owned by one user, optionally linked to
// a provider repository. UploadDate is the time of the last successful sync.
type Project struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name             string     `gorm:"column:project_name;size:255;not null" json:"project_name"`
	Code             string     `gorm:"type:text" json:"code,omitempty"`
	GitRepositoryURL string     `gorm:"size:512;index" json:"git_repository_url,omitempty"`
	Branch           string     `gorm:"size:255" json:"branch,omitempty"`
	UploadDate       *time.Time `json:"upload_date,omitempty"`

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// AllModels returns every model for auto-migration
func AllModels() []any {
	return []any{&User{}, &Project{}, &Report{}}
}
