package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a blog account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `gorm:"primaryKey;size:24" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex:uniq_users_username" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uniq_users_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:user" json:"role"`
	Avatar       string    `gorm:"size:512" json:"avatar"`
	Provider     string    `gorm:"size:32;index:idx_users_provider" json:"-"`
	ProviderID   string    `gorm:"size:255;index:idx_users_provider" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an id and the default role.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
