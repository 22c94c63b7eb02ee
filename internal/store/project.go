package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/verustcode/codesync/internal/model"
)

// ProjectStore persists projects.
type ProjectStore interface {
	Create(project *model.Project) error
	GetByID(id uint) (*model.Project, error)
	// GetByRepositoryURL returns the oldest project linked to url
	GetByRepositoryURL(url string) (*model.Project, error)
	ListByUser(userID uint) ([]model.Project, error)
	// ListLinked returns every project with a repository URL
	ListLinked() ([]model.Project, error)
	// UpdateCode replaces the code and stamps the upload date in one statement
	UpdateCode(id uint, code, branch string, uploadedAt time.Time) error
}

type projectStore struct {
	db *gorm.DB
}

func (s *projectStore) Create(project *model.Project) error {
	return s.db.Create(project).Error
}

func (s *projectStore) GetByID(id uint) (*model.Project, error) {
	var project model.Project
	if err := s.db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *projectStore) GetByRepositoryURL(url string) (*model.Project, error) {
	var project model.Project
	err := s.db.Where("git_repository_url = ?", url).Order("id ASC").First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *projectStore) ListByUser(userID uint) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.Omit("code").Where("user_id = ?", userID).Order("id ASC").Find(&projects).Error
	return projects, err
}

func (s *projectStore) ListLinked() ([]model.Project, error) {
	var projects []model.Project
	err := s.db.Select("id", "git_repository_url", "branch", "user_id").
		Where("git_repository_url <> ''").
		Order("id ASC").
		Find(&projects).Error
	return projects, err
}

func (s *projectStore) UpdateCode(id uint, code, branch string, uploadedAt time.Time) error {
	updates := map[string]any{
		"code":        code,
		"upload_date": uploadedAt,
	}
	if branch != "" {
		updates["branch"] = branch
	}
	result := s.db.Model(&model.Project{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
