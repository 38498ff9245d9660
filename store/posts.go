package store

import (
	"context"
	"math"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkpress/inkpress/models"
)

// PostStore persists posts.
type PostStore struct {
	db *gorm.DB
}

// PostFilter narrows List. Zero fields do not filter.
type PostFilter struct {
	Search     string
	CategoryID string
	AuthorID   string
	Page       int
	Limit      int
}

// likeEscaper makes search text match literally inside a LIKE pattern. The
// escape character is '!' since mysql and sqlite disagree on backslashes in literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (f PostFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		db = db.Where("(LOWER(title) LIKE LOWER(?) ESCAPE '!' OR LOWER(content) LIKE LOWER(?) ESCAPE '!')", like, like)
	}
	if f.CategoryID != "" {
		db = db.Where("category_id = ?", f.CategoryID)
	}
	if f.AuthorID != "" {
		db = db.Where("author_id = ?", f.AuthorID)
	}
	return db
}

func withDisplayRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("Author", authorDisplay).Preload("Category", categoryDisplay)
}

// Create inserts p. A duplicate title or slug yields a *ConflictError.
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

// editableColumns are the columns Save writes. Views are only ever changed by View.
var editableColumns = []string{"title", "slug", "content", "content_format", "source", "category_id", "thumbnail", "updated_at"}

// Save writes the editable columns of p; the slug is recomputed from the title.
func (s *PostStore) Save(ctx context.Context, p *models.Post) error {
	return translate(s.db.WithContext(ctx).Model(p).Select(editableColumns).Updates(p).Error)
}

// FindByID loads a post without references.
func (s *PostStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// Get loads a post with author and category display fields.
func (s *PostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := withDisplayRefs(s.db.WithContext(ctx)).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// View increments the view counter of the post addressed by id or slug and
// returns it afterwards. The increment is a single UPDATE statement.
func (s *PostStore) View(ctx context.Context, idOrSlug string) (*models.Post, error) {
	column := "slug"
	if models.IsID(idOrSlug) {
		column = "id"
	}
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where(column+" = ?", idOrSlug).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	var p models.Post
	if err := withDisplayRefs(s.db.WithContext(ctx)).Where(column+" = ?", idOrSlug).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// List returns one page of posts, newest first, plus the total match count.
func (s *PostStore) List(ctx context.Context, f PostFilter) ([]models.Post, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	// an offset past math.MaxInt would wrap negative and be dropped by gorm
	if f.Page-1 > math.MaxInt/f.Limit {
		return []models.Post{}, total, nil
	}

	posts := []models.Post{}
	err := withDisplayRefs(s.db.WithContext(ctx)).
		Scopes(f.scope).
		Order("created_at DESC").Order("id DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return posts, total, nil
}

// Delete removes the post and every comment referencing it in one transaction.
func (s *PostStore) Delete(ctx context.Context, id string) (commentsDeleted int64, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		res = tx.Where("post_id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		commentsDeleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return commentsDeleted, nil
}
