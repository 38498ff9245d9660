package client

import "time"

type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Post struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	Content       string       `json:"content"`
	ContentFormat string       `json:"contentFormat"`
	Source        string       `json:"source,omitempty"`
	Thumbnail     string       `json:"thumbnail"`
	Views         int64        `json:"views"`
	Author        *Author      `json:"author"`
	Category      *CategoryRef `json:"category"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// PostPage is one page of ListPosts.
type PostPage struct {
	Data  []Post `json:"data"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
}

// ListOptions filter ListPosts. Zero fields are not sent.
type ListOptions struct {
	Search   string
	Category string
	Author   string
	Page     int
	Limit    int
}

// PostInput creates a post. Category is an id or slug.
type PostInput struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	ContentFormat string `json:"contentFormat,omitempty"`
	Category      string `json:"category"`
	Thumbnail     string `json:"thumbnail,omitempty"`
}

// PostPatch updates a post. Nil fields are left unchanged.
type PostPatch struct {
	Title         *string `json:"title,omitempty"`
	Content       *string `json:"content,omitempty"`
	ContentFormat *string `json:"contentFormat,omitempty"`
	Category      *string `json:"category,omitempty"`
	Thumbnail     *string `json:"thumbnail,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Content   string    `json:"content"`
	Author    *Author   `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Registered is the account summary returned by Register.
type Registered struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileUpdate changes the signed-in profile. Empty fields are left unchanged.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type Stats struct {
	Users      int64 `json:"users"`
	Posts      int64 `json:"posts"`
	Comments   int64 `json:"comments"`
	Categories int64 `json:"categories"`
	Views      int64 `json:"views"`
}
