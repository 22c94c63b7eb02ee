package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/verustcode/codesync/internal/model"
)

// UserStore persists users and their provider credentials.
type UserStore interface {
	Create(user *model.User) error
	GetByID(id uint) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	// UpdateAccessToken overwrites one provider token column in a single
	// statement, leaving the other columns untouched.
	UpdateAccessToken(id uint, provider, token string) error
}

type userStore struct {
	db *gorm.DB
}

func (s *userStore) Create(user *model.User) error {
	if err := s.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *userStore) GetByID(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userStore) GetByEmail(email string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userStore) UpdateAccessToken(id uint, provider, token string) error {
	column, ok := model.TokenColumn(provider)
	if !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	result := s.db.Model(&model.User{}).Where("id = ?", id).Update(column, token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
