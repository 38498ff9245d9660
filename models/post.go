package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/utils/slug"
)

const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Post is an article written by a user under one category.
type Post struct {
	ID            string    `gorm:"primaryKey;size:24" json:"id"`
	Title         string    `gorm:"size:255;not null;uniqueIndex:uniq_posts_title" json:"title"`
	Slug          string    `gorm:"size:255;not null;uniqueIndex:uniq_posts_slug" json:"slug"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	ContentFormat string    `gorm:"size:16;not null;default:html" json:"contentFormat"`
	Source        string    `gorm:"type:text" json:"source,omitempty"`
	AuthorID      string    `gorm:"size:24;not null;index" json:"authorId"`
	CategoryID    string    `gorm:"size:24;not null;index" json:"categoryId"`
	Thumbnail     string    `gorm:"size:1024" json:"thumbnail"`
	Views         int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Author        *User     `gorm:"foreignKey:AuthorID" json:"-"`
	Category      *Category `gorm:"foreignKey:CategoryID" json:"-"`
}

// BeforeSave keeps the slug in step with the title. A title without any ASCII
// letter or digit gets the empty slug, so only one such post can exist.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.ContentFormat == "" {
		p.ContentFormat = FormatHTML
	}
	p.Slug = slug.Make(p.Title)
	return nil
}
