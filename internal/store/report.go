package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/verustcode/codesync/internal/model"
)

// ReportStore persists reports. Reports are only ever created pending and
// finished once.
type ReportStore interface {
	Create(report *model.Report) error
	GetByID(id uint) (*model.Report, error)
	// Finish moves a pending report to a terminal status. It returns
	// ErrInvalidTransition if the report is not pending.
	Finish(id uint, status model.ReportStatus, result string, at time.Time) error
	ListByProject(projectID uint) ([]model.Report, error)
	ListByUser(userID uint) ([]model.Report, error)
}

type reportStore struct {
	db *gorm.DB
}

func (s *reportStore) Create(report *model.Report) error {
	if report.Status == "" {
		report.Status = model.ReportStatusPending
	}
	return s.db.Create(report).Error
}

func (s *reportStore) GetByID(id uint) (*model.Report, error) {
	var report model.Report
	if err := s.db.First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *reportStore) Finish(id uint, status model.ReportStatus, result string, at time.Time) error {
	if !model.ReportStatusPending.CanTransitionTo(status) {
		return ErrInvalidTransition
	}
	res := s.db.Model(&model.Report{}).
		Where("id = ? AND status = ?", id, model.ReportStatusPending).
		Updates(map[string]any{
			"status":          status,
			"analysis_result": result,
			"completed_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *reportStore) ListByProject(projectID uint) ([]model.Report, error) {
	var reports []model.Report
	err := s.db.Where("project_id = ?", projectID).Order("id DESC").Find(&reports).Error
	return reports, err
}

func (s *reportStore) ListByUser(userID uint) ([]model.Report, error) {
	var reports []model.Report
	err := s.db.Joins("JOIN projects ON projects.id = reports.project_id").
		Where("projects.user_id = ?", userID).
		Order("reports.id DESC").
		Find(&reports).Error
	return reports, err
}
