package store

import (
	"context"

	"github.com/inkpress/inkpress/models"
)

// Stats aggregates site-wide counters.
type Stats struct {
	Users      int64 `json:"users"`
	Posts      int64 `json:"posts"`
	Comments   int64 `json:"comments"`
	Categories int64 `json:"categories"`
	Views      int64 `json:"views"`
}

// Stats counts rows per table and sums post views.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &st.Users},
		{&models.Post{}, &st.Posts},
		{&models.Comment{}, &st.Comments},
		{&models.Category{}, &st.Categories},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return Stats{}, translate(err)
		}
	}
	if err := db.Model(&models.Post{}).Select("COALESCE(SUM(views), 0)").Scan(&st.Views).Error; err != nil {
		return Stats{}, translate(err)
	}
	return st, nil
}
