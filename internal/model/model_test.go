package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ReportStatus
		want     bool
	}{
		{ReportStatusPending, ReportStatusCompleted, true},
		{ReportStatusPending, ReportStatusFailed, true},
		{ReportStatusPending, ReportStatusPending, false},
		{ReportStatusCompleted, ReportStatusFailed, false},
		{ReportStatusFailed, ReportStatusCompleted, false},
		{ReportStatusCompleted, ReportStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestUser_AccessToken(t *testing.T) {
	u := &User{GitHubAccessToken: "gh", GitLabAccessToken: "gl"}
	assert.Equal(t, "gh", u.AccessToken("github"))
	assert.Equal(t, "gl", u.AccessToken("gitlab"))
	assert.Empty(t, u.AccessToken("gitea"))

	col, ok := TokenColumn("gitlab")
	assert.True(t, ok)
	assert.Equal(t, "gitlab_access_token", col)
	_, ok = TokenColumn("bitbucket")
	assert.False(t, ok)
}
