package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/models"
)

// UserStore persists accounts.
type UserStore struct {
	db *gorm.DB
}

// Create inserts u. A duplicate username or email yields a *ConflictError.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

// Save writes every column of u.
func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByProvider looks up an account created through third-party login.
func (s *UserStore) FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Taken reports which of username and email already belong to some account.
func (s *UserStore) Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	var users []models.User
	err = s.db.WithContext(ctx).
		Select("id", "username", "email").
		Where("username = ? OR email = ?", username, email).
		Find(&users).Error
	if err != nil {
		return false, false, translate(err)
	}
	for _, u := range users {
		if u.Username == username {
			usernameTaken = true
		}
		if u.Email == email {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

// UsernameTakenByOther reports whether username belongs to an account other than userID.
func (s *UserStore) UsernameTakenByOther(ctx context.Context, username, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, userID).
		Count(&n).Error
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}
