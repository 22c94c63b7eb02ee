// Package store provides data access for users, projects and reports.
package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("record already exists")
	// ErrInvalidTransition is returned when a report is not pending anymore
	ErrInvalidTransition = errors.New("invalid report status transition")
)

// Store aggregates all sub-stores.
type Store interface {
	User() UserStore
	Project() ProjectStore
	Report() ReportStore

	DB() *gorm.DB

	// Transaction runs fn with a Store bound to a single transaction
	Transaction(fn func(Store) error) error
}

type gormStore struct {
	db       *gorm.DB
	users    UserStore
	projects ProjectStore
	reports  ReportStore
}

// NewStore creates a Store backed by db
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:       db,
		users:    &userStore{db: db},
		projects: &projectStore{db: db},
		reports:  &reportStore{db: db},
	}
}

func (s *gormStore) User() UserStore       { return s.users }
func (s *gormStore) Project() ProjectStore { return s.projects }
func (s *gormStore) Report() ReportStore   { return s.reports }
func (s *gormStore) DB() *gorm.DB          { return s.db }

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}
