package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a reply to a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:24" json:"id"`
	PostID    string    `gorm:"size:24;index;not null" json:"postId"`
	AuthorID  string    `gorm:"size:24;index;not null" json:"authorId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}
