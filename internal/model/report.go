package model

import "time"

// ReportStatus is the lifecycle state of a report
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed
}

// CanTransitionTo reports whether s may move to next. Only pending reports
// move, and only to a terminal state.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	return s == ReportStatusPending && next.IsTerminal()
}

// Report triggers
const (
	TriggerWebhook  = "webhook"
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerCreate   = "create"
)

// Report records one analysis run against a project's code. Reports are
// append-only history; once terminal they are never modified.
type Report struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID      uint         `gorm:"not null;index" json:"project_id"`
	Project        *Project     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	GenerationDate time.Time    `gorm:"not null;index" json:"generation_date"`
	Status         ReportStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	AnalysisResult string       `gorm:"type:text" json:"analysis_result"`

	// Trigger is what caused the report (webhook, manual, schedule, create)
	Trigger string `gorm:"size:20" json:"trigger,omitempty"`
	// CodeDigest is the SHA-256 of the analyzed code
	CodeDigest  string     `gorm:"size:64" json:"code_digest,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
