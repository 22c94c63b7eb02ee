package store

import (
	"path/filepath"
	"testing"

	"github.com/verustcode/codesync/internal/database"
	"github.com/verustcode/codesync/internal/model"
)

// SetupTestDB initializes a SQLite database in a temp dir and returns a
// Store over it plus a cleanup function.
func SetupTestDB(t *testing.T) (Store, func()) {
	t.Helper()
	database.ResetForTesting()

	path := filepath.Join(t.TempDir(), "test.db")
	if err := database.InitWithPath(path); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	return NewStore(database.Get()), database.ResetForTesting
}

// CreateTestUser inserts a user with defaults that overrides may change.
func CreateTestUser(t *testing.T, s Store, email string, overrides ...func(*model.User)) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "$2a$10$testhashtesthashtesthashtesthashtesthashtesthash",
		Role:         model.RoleUser,
	}
	for _, o := range overrides {
		o(user)
	}
	if err := s.User().Create(user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CreateTestProject inserts a project owned by userID.
func CreateTestProject(t *testing.T, s Store, userID uint, repoURL string, overrides ...func(*model.Project)) *model.Project {
	t.Helper()
	project := &model.Project{
		Name:             "test-project",
		GitRepositoryURL: repoURL,
		UserID:           userID,
	}
	for _, o := range overrides {
		o(project)
	}
	if err := s.Project().Create(project); err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}
	return project
}
