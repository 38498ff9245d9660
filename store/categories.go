package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/models"
)

// CategoryStore persists the category taxonomy.
type CategoryStore struct {
	db *gorm.DB
}

// List returns all categories ordered by name.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, translate(err)
	}
	return cats, nil
}

func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *CategoryStore) FindByID(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// Resolve finds a category by id or, failing the id shape, by slug.
func (s *CategoryStore) Resolve(ctx context.Context, ref string) (*models.Category, error) {
	if models.IsID(ref) {
		return s.FindByID(ctx, ref)
	}
	return s.FindBySlug(ctx, ref)
}

// Reseed deletes every category and recreates the canonical set one by one so
// the slug hook runs for each. A recreated category keeps the id it had before
// the reset, so posts filed under it still resolve.
func (s *CategoryStore) Reseed(ctx context.Context) (deleted int64, created []models.Category, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Category
		if err := tx.Select("id", "name").Find(&existing).Error; err != nil {
			return err
		}
		ids := make(map[string]string, len(existing))
		for _, c := range existing {
			ids[c.Name] = c.ID
		}

		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Category{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		created = make([]models.Category, 0, len(models.CategoryNames))
		for _, name := range models.CategoryNames {
			c := models.Category{ID: ids[name], Name: name}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return 0, nil, translate(err)
	}
	return deleted, created, nil
}
