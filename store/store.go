// Package store is the persistence layer. Every method returns ErrNotFound,
// a *ConflictError or an internal error, never a raw driver error kind.
package store

import (
	"gorm.io/gorm"
)

// Store bundles the per-resource stores sharing one connection pool.
type Store struct {
	db         *gorm.DB
	Users      *UserStore
	Posts      *PostStore
	Comments   *CommentStore
	Categories *CategoryStore
}

// New wires all stores onto db.
func New(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Users:      &UserStore{db: db},
		Posts:      &PostStore{db: db},
		Comments:   &CommentStore{db: db},
		Categories: &CategoryStore{db: db},
	}
}

// authorDisplay limits preloaded authors to the fields shown next to content.
func authorDisplay(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "avatar")
}

func categoryDisplay(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "slug")
}
