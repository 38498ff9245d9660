// Package client is a typed Go client for the inkpress HTTP API. It keeps the
// session cookie in a cookie jar and mirrors the signed-in profile into a Session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    int
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inkpress: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one inkpress server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is replaced when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for baseURL (e.g. "http://localhost:4000"). A nil session
// uses an in-memory one.
func New(baseURL string, session *Session, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if session == nil {
		session = NewMemorySession()
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Session returns the session the client keeps in sync.
func (c *Client) Session() *Session {
	return c.session
}

type envelope struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Pages   int               `json:"pages"`
}

// do sends one request and decodes the envelope. Any 401 drops the cached profile;
// a failure to save that is joined to the returned error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*envelope, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var err error = &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Details: env.Details}
		if resp.StatusCode == http.StatusUnauthorized {
			if clearErr := c.session.Clear(); clearErr != nil {
				err = errors.Join(err, fmt.Errorf("clear session: %w", clearErr))
			}
		}
		return nil, err
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return &env, nil
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*Registered, error) {
	var out Registered
	body := map[string]string{"username": username, "email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in and caches the returned profile in the session.
func (c *Client) Login(ctx context.Context, username, password string) (*Profile, error) {
	var out Profile
	body := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	if err := c.session.Set(out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the server session. The cached profile is cleared even if the call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	if clearErr := c.session.Clear(); err == nil {
		err = clearErr
	}
	return err
}

// Me fetches the signed-in profile and refreshes the session with it.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if _, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	if err := c.session.Set(out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPosts(ctx context.Context, opts ListOptions) (*PostPage, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Author != "" {
		q.Set("author", opts.Author)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	page := PostPage{Data: []Post{}}
	env, err := c.do(ctx, http.MethodGet, "/api/posts", q, nil, &page.Data)
	if err != nil {
		return nil, err
	}
	page.Total, page.Page, page.Pages = env.Total, env.Page, env.Pages
	return &page, nil
}

// GetPost fetches a post by id or slug. Each call counts as a view.
func (c *Client) GetPost(ctx context.Context, idOrSlug string) (*Post, error) {
	var out Post
	if _, err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(idOrSlug), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	var out Post
	if _, err := c.do(ctx, http.MethodPost, "/api/posts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePost(ctx context.Context, id string, patch PostPatch) (*Post, error) {
	var out Post
	if _, err := c.do(ctx, http.MethodPut, "/api/posts/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil, nil)
	return err
}

func (c *Client) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	out := []Comment{}
	if _, err := c.do(ctx, http.MethodGet, "/api/comments/"+url.PathEscape(postID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddComment(ctx context.Context, postID, content string) (*Comment, error) {
	var out Comment
	body := map[string]string{"postId": postID, "content": content}
	if _, err := c.do(ctx, http.MethodPost, "/api/comments", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/comments/"+url.PathEscape(id), nil, nil, nil)
	return err
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	out := []Category{}
	if _, err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, name string, description *string) (*Category, error) {
	var out Category
	body := struct {
		Name        string  `json:"name"`
		Description *string `json:"description,omitempty"`
	}{name, description}
	if _, err := c.do(ctx, http.MethodPost, "/api/categories", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the signed-in profile and caches the result.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*Profile, error) {
	var out Profile
	if _, err := c.do(ctx, http.MethodPatch, "/api/users/update", nil, in, &out); err != nil {
		return nil, err
	}
	if err := c.session.Set(out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	_, err := c.do(ctx, http.MethodPatch, "/api/users/change-password", nil, body, nil)
	return err
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if _, err := c.do(ctx, http.MethodGet, "/api/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
