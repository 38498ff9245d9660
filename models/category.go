package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/utils/slug"
)

// CategoryNames is the closed taxonomy posts are filed under.
var CategoryNames = []string{
	"Technology",
	"Travel",
	"Food",
	"Lifestyle",
	"Health & Fitness",
	"Fashion",
	"Education",
	"Business",
	"Entertainment",
	"Sports",
	"Art & Design",
	"Science",
	"Personal Development",
	"News",
	"Opinion",
}

// MaxCategoryDescription bounds Category.Description in characters.
const MaxCategoryDescription = 200

// IsCategoryName reports whether name belongs to CategoryNames.
func IsCategoryName(name string) bool {
	for _, n := range CategoryNames {
		if n == name {
			return true
		}
	}
	return false
}

// Category groups posts by topic.
type Category struct {
	ID          string    `gorm:"primaryKey;size:24" json:"id"`
	Name        string    `gorm:"size:64;not null;uniqueIndex:uniq_categories_name" json:"name"`
	Slug        string    `gorm:"size:64;not null;uniqueIndex:uniq_categories_slug" json:"slug"`
	Description *string   `gorm:"size:200" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	c.Slug = slug.Make(c.Name)
	return nil
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{&User{}, &Category{}, &Post{}, &Comment{}}
}
