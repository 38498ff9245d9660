package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkpress/inkpress/models"
)

// CommentStore persists comments.
type CommentStore struct {
	db *gorm.DB
}

// Create inserts c and reloads it with author display fields.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		return translate(err)
	}
	return translate(s.db.WithContext(ctx).Preload("Author", authorDisplay).Where("id = ?", c.ID).First(c).Error)
}

func (s *CommentStore) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListByPost returns the comments of a post, newest first.
func (s *CommentStore) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.WithContext(ctx).
		Preload("Author", authorDisplay).
		Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

func (s *CommentStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
