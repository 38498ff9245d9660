package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/models"
)

// authorRef is the part of a user shown next to content.
type authorRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type categoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type postView struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	Content       string       `json:"content"`
	ContentFormat string       `json:"contentFormat"`
	Source        string       `json:"source,omitempty"`
	Thumbnail     string       `json:"thumbnail"`
	Views         int64        `json:"views"`
	Author        *authorRef   `json:"author"`
	Category      *categoryRef `json:"category"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type commentView struct {
	ID        string     `json:"id"`
	PostID    string     `json:"postId"`
	Content   string     `json:"content"`
	Author    *authorRef `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
}

func newAuthorRef(u *models.User, id string) *authorRef {
	if u == nil {
		// author account no longer exists
		return &authorRef{ID: id}
	}
	return &authorRef{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

func newCategoryRef(c *models.Category, id string) *categoryRef {
	if c == nil {
		return &categoryRef{ID: id}
	}
	return &categoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

func newPostView(p *models.Post) postView {
	return postView{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		Content:       p.Content,
		ContentFormat: p.ContentFormat,
		Source:        p.Source,
		Thumbnail:     p.Thumbnail,
		Views:         p.Views,
		Author:        newAuthorRef(p.Author, p.AuthorID),
		Category:      newCategoryRef(p.Category, p.CategoryID),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func newPostViews(posts []models.Post) []postView {
	out := make([]postView, 0, len(posts))
	for i := range posts {
		out = append(out, newPostView(&posts[i]))
	}
	return out
}

func newCommentView(c *models.Comment) commentView {
	return commentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		Author:    newAuthorRef(c.Author, c.AuthorID),
		CreatedAt: c.CreatedAt,
	}
}

func newCommentViews(comments []models.Comment) []commentView {
	out := make([]commentView, 0, len(comments))
	for i := range comments {
		out = append(out, newCommentView(&comments[i]))
	}
	return out
}

// sanitizeUserResponse is the profile of a user without credentials.
func sanitizeUserResponse(user models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"avatar":    user.Avatar,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	}
}
