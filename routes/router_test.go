package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	store  *store.Store
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		DBDriver:           "sqlite",
		SQLitePath:         filepath.Join(dir, "test.db"),
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		LogLevel:           "silent",
		RateLimitPerMinute: 100000,
		AdminUsernames:     []string{"root"},
	})
	db, err := config.OpenDatabase(config.Get())
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := store.New(db)
	if _, _, err := s.Categories.Reseed(context.Background()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	return &testServer{t: t, engine: SetupRouter(s), store: s, db: db}
}

type response struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Pages   int               `json:"pages"`
}

func (ts *testServer) do(method, path string, body interface{}, cookie *http.Cookie) (*httptest.ResponseRecorder, response) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var resp response
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			ts.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, resp
}

func (ts *testServer) register(username, email, password string) {
	ts.t.Helper()
	w, resp := ts.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "email": email, "password": password,
	}, nil)
	if w.Code != http.StatusCreated {
		ts.t.Fatalf("register %s: code %d %s", username, w.Code, resp.Message)
	}
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

// signup registers and logs in, returning the session cookie and user id.
func (ts *testServer) signup(username string) (*http.Cookie, string) {
	ts.t.Helper()
	ts.register(username, username+"@example.com", "secret123")
	w, resp := ts.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username, "password": "secret123",
	}, nil)
	if w.Code != http.StatusOK {
		ts.t.Fatalf("login %s: code %d", username, w.Code)
	}
	cookie := sessionCookie(w)
	if cookie == nil || cookie.Value == "" {
		ts.t.Fatalf("login %s: no session cookie", username)
	}
	var profile struct {
		ID string `json:"id"`
	}
	decode(ts.t, resp.Data, &profile)
	return cookie, profile.ID
}

type testPost struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Views   int64  `json:"views"`
	Author  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"author"`
	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"category"`
}

func (ts *testServer) createPost(cookie *http.Cookie, title string) testPost {
	ts.t.Helper()
	w, resp := ts.do(http.MethodPost, "/api/posts", map[string]string{
		"title": title, "content": "<p>body of " + title + "</p>", "category": "technology",
	}, cookie)
	if w.Code != http.StatusCreated {
		ts.t.Fatalf("create post %q: code %d %s", title, w.Code, resp.Message)
	}
	var p testPost
	decode(ts.t, resp.Data, &p)
	return p
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health code %d", w.Code)
	}
	w, _ = ts.do(http.MethodGet, "/api/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route code %d", w.Code)
	}
}

func TestRegisterValidationOrder(t *testing.T) {
	ts := newTestServer(t)
	cases := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{"missing fields", map[string]string{"username": "al"}, "All fields are required"},
		{"bad email", map[string]string{"username": "al", "email": "nope", "password": "x"}, "Invalid email format"},
		{"short password", map[string]string{"username": "al", "email": "a@b.co", "password": "12345"}, "Password must be at least 6 characters long"},
		{"short username", map[string]string{"username": "al", "email": "a@b.co", "password": "123456"}, "Username must be at least 3 characters long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := ts.do(http.MethodPost, "/api/auth/register", tc.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("code %d", w.Code)
			}
			if resp.Message != tc.message {
				t.Fatalf("message %q, want %q", resp.Message, tc.message)
			}
		})
	}

	_, resp := ts.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice"}, nil)
	if resp.Details["email"] == "" || resp.Details["password"] == "" || resp.Details["username"] != "" {
		t.Fatalf("details %v", resp.Details)
	}
}

func TestRegisterConflicts(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice", "alice@example.com", "secret123")

	cases := []struct {
		username, email, message string
	}{
		{"bob", "alice@example.com", "Email already exists"},
		{"alice", "bob@example.com", "Username already exists"},
		{"alice", "alice@example.com", "Username and email already exist"},
	}
	for _, tc := range cases {
		w, resp := ts.do(http.MethodPost, "/api/auth/register", map[string]string{
			"username": tc.username, "email": tc.email, "password": "secret123",
		}, nil)
		if w.Code != http.StatusBadRequest || resp.Message != tc.message {
			t.Fatalf("%s/%s: code %d message %q", tc.username, tc.email, w.Code, resp.Message)
		}
	}
}

func TestRegisterResponseOmitsPassword(t *testing.T) {
	ts := newTestServer(t)
	w, resp := ts.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("code %d", w.Code)
	}
	if strings.Contains(strings.ToLower(string(resp.Data)), "password") {
		t.Fatalf("response leaks password: %s", resp.Data)
	}
	var out map[string]string
	decode(t, resp.Data, &out)
	if out["id"] == "" || out["username"] != "alice" || out["email"] != "alice@example.com" {
		t.Fatalf("data %v", out)
	}
}

func TestLoginInvalidCredentialsIdentical(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice", "alice@example.com", "secret123")

	wrongPass, a := ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "nope123"}, nil)
	noUser, b := ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "ghost", "password": "nope123"}, nil)
	if wrongPass.Code != http.StatusUnauthorized || noUser.Code != http.StatusUnauthorized {
		t.Fatalf("codes %d %d", wrongPass.Code, noUser.Code)
	}
	if wrongPass.Body.String() != noUser.Body.String() {
		t.Fatalf("responses differ: %s vs %s", wrongPass.Body.String(), noUser.Body.String())
	}
	if a.Message != "Invalid credentials" || b.Message != "Invalid credentials" {
		t.Fatalf("message %q", a.Message)
	}

	w, _ := ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password code %d", w.Code)
	}
}

func TestLoginSetsHTTPOnlyCookie(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice", "alice@example.com", "secret123")
	w, resp := ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret123"}, nil)
	cookie := sessionCookie(w)
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("cookie %+v", cookie)
	}
	if cookie.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("max age %d", cookie.MaxAge)
	}
	var profile map[string]interface{}
	decode(t, resp.Data, &profile)
	if profile["role"] != models.RoleUser || profile["username"] != "alice" {
		t.Fatalf("profile %v", profile)
	}
	if _, ok := profile["passwordHash"]; ok {
		t.Fatalf("profile leaks hash")
	}
}

func TestAdminUsernameGetsAdminRole(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("root")
	_, resp := ts.do(http.MethodGet, "/api/auth/me", nil, cookie)
	var profile map[string]interface{}
	decode(t, resp.Data, &profile)
	if profile["role"] != models.RoleAdmin {
		t.Fatalf("role %v", profile["role"])
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")

	w, _ := ts.do(http.MethodGet, "/api/auth/me", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("me code %d", w.Code)
	}

	w, _ = ts.do(http.MethodPost, "/api/auth/logout", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("logout code %d", w.Code)
	}
	if c := sessionCookie(w); c == nil || c.MaxAge >= 0 {
		t.Fatalf("logout did not clear cookie: %+v", c)
	}

	w, _ = ts.do(http.MethodGet, "/api/auth/me", nil, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout code %d", w.Code)
	}

	// logout without a session still succeeds
	w, _ = ts.do(http.MethodPost, "/api/auth/logout", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous logout code %d", w.Code)
	}
}

func TestInvalidTokenClearsCookie(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: "token", Value: "garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code %d", w.Code)
	}
	if c := sessionCookie(w); c == nil || c.MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", c)
	}

	w, _ = ts.do(http.MethodPost, "/api/posts", map[string]string{"title": "x"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create code %d", w.Code)
	}
}

func TestPostViewsIncrementBySlugAndID(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")
	post := ts.createPost(cookie, "Hello, World!")
	if post.Slug != "hello-world" {
		t.Fatalf("slug %q", post.Slug)
	}
	if post.Views != 0 {
		t.Fatalf("initial views %d", post.Views)
	}

	for i, ref := range []string{post.Slug, post.Slug, post.ID} {
		w, resp := ts.do(http.MethodGet, "/api/posts/"+ref, nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get %s code %d", ref, w.Code)
		}
		var got testPost
		decode(t, resp.Data, &got)
		if got.Views != int64(i+1) {
			t.Fatalf("fetch %d: views %d", i+1, got.Views)
		}
		if got.Author.Username != "alice" || got.Category.Slug != "technology" {
			t.Fatalf("refs %+v %+v", got.Author, got.Category)
		}
	}

	w, _ := ts.do(http.MethodGet, "/api/posts/no-such-post", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing slug code %d", w.Code)
	}
	w, _ = ts.do(http.MethodGet, "/api/posts/"+models.NewID(), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing id code %d", w.Code)
	}
}

func TestCreatePostValidation(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")

	w, _ := ts.do(http.MethodPost, "/api/posts", map[string]string{"title": "t", "content": "c"}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing category code %d", w.Code)
	}
	w, _ = ts.do(http.MethodPost, "/api/posts", map[string]string{"title": "t", "content": "c", "category": "cooking"}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown category code %d", w.Code)
	}
}

func TestDuplicateSlugRejected(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")
	ts.createPost(cookie, "Go Tips")

	for _, title := range []string{"Go Tips", "go tips!", "  GO -- TIPS  "} {
		w, resp := ts.do(http.MethodPost, "/api/posts", map[string]string{
			"title": title, "content": "x", "category": "technology",
		}, cookie)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%q: code %d", title, w.Code)
		}
		if resp.Message != "A post with this title already exists." {
			t.Fatalf("%q: message %q", title, resp.Message)
		}
	}
}

func TestSymbolOnlyTitlesShareOneSlug(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")
	ts.createPost(cookie, "!!!")

	w, resp := ts.do(http.MethodPost, "/api/posts", map[string]string{
		"title": "???", "content": "x", "category": "technology",
	}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code %d", w.Code)
	}
	if resp.Message != "A post with this title already exists." {
		t.Fatalf("message %q", resp.Message)
	}
}

func TestPostContentSanitizedAndMarkdown(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")

	w, resp := ts.do(http.MethodPost, "/api/posts", map[string]string{
		"title": "Unsafe", "content": `<p onclick="x()">hi</p><script>alert(1)</script>`, "category": "technology",
	}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("code %d", w.Code)
	}
	var p testPost
	decode(t, resp.Data, &p)
	if strings.Contains(p.Content, "script") || strings.Contains(p.Content, "onclick") {
		t.Fatalf("content not sanitized: %s", p.Content)
	}

	w, resp = ts.do(http.MethodPost, "/api/posts", map[string]string{
		"title": "Markdown", "content": "# Heading\n\n**bold**", "contentFormat": "markdown", "category": "science",
	}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("markdown code %d", w.Code)
	}
	decode(t, resp.Data, &p)
	if !strings.Contains(p.Content, "<h1") || !strings.Contains(p.Content, "<strong>bold</strong>") {
		t.Fatalf("markdown not rendered: %s", p.Content)
	}
	if p.Source != "# Heading\n\n**bold**" {
		t.Fatalf("source %q", p.Source)
	}
}

func TestPostWritesLogTheActingUser(t *testing.T) {
	ts := newTestServer(t)
	core, logs := observer.New(zap.InfoLevel)
	prev := utils.Logger
	utils.Logger = zap.New(core)
	t.Cleanup(func() { utils.Logger = prev })

	cookie, _ := ts.signup("alice")
	post := ts.createPost(cookie, "Logged")
	if w, _ := ts.do(http.MethodDelete, "/api/posts/"+post.ID, nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("delete code %d", w.Code)
	}

	for _, msg := range []string{"post created", "post deleted"} {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Fatalf("%s: %d entries", msg, len(entries))
		}
		fields := entries[0].ContextMap()
		if fields["username"] != "alice" || fields["post_id"] != post.ID {
			t.Fatalf("%s: fields %v", msg, fields)
		}
	}
}

func TestNonOwnerCannotModifyPost(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup("alice")
	bob, _ := ts.signup("bob")
	post := ts.createPost(alice, "Alice Post")

	w, _ := ts.do(http.MethodPut, "/api/posts/"+post.ID, map[string]string{"title": "Hijacked"}, bob)
	if w.Code != http.StatusForbidden {
		t.Fatalf("update code %d", w.Code)
	}
	w, _ = ts.do(http.MethodDelete, "/api/posts/"+post.ID, nil, bob)
	if w.Code != http.StatusForbidden {
		t.Fatalf("delete code %d", w.Code)
	}

	stored, err := ts.store.Posts.FindByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("post gone: %v", err)
	}
	if stored.Title != "Alice Post" || stored.Slug != "alice-post" {
		t.Fatalf("post changed: %+v", stored)
	}

	w, _ = ts.do(http.MethodPut, "/api/posts/"+models.NewID(), map[string]string{"title": "x"}, bob)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing post code %d", w.Code)
	}
}

func TestOwnerAndAdminUpdatePost(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup("alice")
	root, _ := ts.signup("root")
	post := ts.createPost(alice, "First Title")
	ts.createPost(alice, "Taken Title")

	w, resp := ts.do(http.MethodPut, "/api/posts/"+post.ID, map[string]string{"title": "Second Title", "category": "travel"}, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("owner update code %d %s", w.Code, resp.Message)
	}
	var p testPost
	decode(t, resp.Data, &p)
	if p.Slug != "second-title" || p.Category.Name != "Travel" {
		t.Fatalf("updated %+v", p)
	}

	w, _ = ts.do(http.MethodPut, "/api/posts/"+post.ID, map[string]string{"title": "Taken Title"}, alice)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate title code %d", w.Code)
	}

	w, _ = ts.do(http.MethodPut, "/api/posts/"+post.ID, map[string]string{"thumbnail": "https://img.example/x.png"}, root)
	if w.Code != http.StatusOK {
		t.Fatalf("admin update code %d", w.Code)
	}
	w, _ = ts.do(http.MethodDelete, "/api/posts/"+post.ID, nil, root)
	if w.Code != http.StatusOK {
		t.Fatalf("admin delete code %d", w.Code)
	}
}

func TestDeletePostCascadesComments(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup("alice")
	bob, _ := ts.signup("bob")
	post := ts.createPost(alice, "Doomed")
	other := ts.createPost(alice, "Survivor")

	for i := 0; i < 3; i++ {
		w, _ := ts.do(http.MethodPost, "/api/comments", map[string]string{"postId": post.ID, "content": fmt.Sprintf("c%d", i)}, bob)
		if w.Code != http.StatusCreated {
			t.Fatalf("comment code %d", w.Code)
		}
	}
	ts.do(http.MethodPost, "/api/comments", map[string]string{"postId": other.ID, "content": "stays"}, bob)

	w, resp := ts.do(http.MethodDelete, "/api/posts/"+post.ID, nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("delete code %d", w.Code)
	}
	var out struct {
		CommentsDeleted int64 `json:"commentsDeleted"`
	}
	decode(t, resp.Data, &out)
	if out.CommentsDeleted != 3 {
		t.Fatalf("comments deleted %d", out.CommentsDeleted)
	}

	_, resp = ts.do(http.MethodGet, "/api/comments/"+post.ID, nil, nil)
	var comments []json.RawMessage
	decode(t, resp.Data, &comments)
	if len(comments) != 0 {
		t.Fatalf("orphaned comments: %d", len(comments))
	}
	_, resp = ts.do(http.MethodGet, "/api/comments/"+other.ID, nil, nil)
	decode(t, resp.Data, &comments)
	if len(comments) != 1 {
		t.Fatalf("other post comments: %d", len(comments))
	}

	w, _ = ts.do(http.MethodDelete, "/api/posts/"+post.ID, nil, alice)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete code %d", w.Code)
	}
}

func TestListPostsPagination(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")
	for i := 1; i <= 25; i++ {
		ts.createPost(cookie, fmt.Sprintf("Post %02d", i))
	}

	w, resp := ts.do(http.MethodGet, "/api/posts?page=2&limit=10", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code %d", w.Code)
	}
	if resp.Total != 25 || resp.Pages != 3 || resp.Page != 2 {
		t.Fatalf("total %d pages %d page %d", resp.Total, resp.Pages, resp.Page)
	}
	var posts []testPost
	decode(t, resp.Data, &posts)
	if len(posts) != 10 {
		t.Fatalf("len %d", len(posts))
	}
	// newest first: page 2 holds the 11th to 20th newest, i.e. posts 15 down to 06
	for i, p := range posts {
		want := fmt.Sprintf("Post %02d", 15-i)
		if p.Title != want {
			t.Fatalf("item %d: %q, want %q", i, p.Title, want)
		}
	}

	_, resp = ts.do(http.MethodGet, "/api/posts", nil, nil)
	decode(t, resp.Data, &posts)
	if len(posts) != 10 || resp.Page != 1 {
		t.Fatalf("defaults: len %d page %d", len(posts), resp.Page)
	}

	w, resp = ts.do(http.MethodGet, "/api/posts?page=9223372036854775807&limit=100", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("huge page: code %d", w.Code)
	}
	posts = nil
	decode(t, resp.Data, &posts)
	if len(posts) != 0 || resp.Total != 25 {
		t.Fatalf("huge page: len %d total %d", len(posts), resp.Total)
	}
}

func TestListPostsFilters(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceID := ts.signup("alice")
	bob, _ := ts.signup("bob")
	ts.createPost(alice, "Rust Notes")
	ts.createPost(bob, "Go Notes")
	w, _ := ts.do(http.MethodPost, "/api/posts", map[string]string{"title": "Paris", "content": "trip", "category": "travel"}, bob)
	if w.Code != http.StatusCreated {
		t.Fatalf("code %d", w.Code)
	}

	cases := []struct {
		query string
		want  int64
	}{
		{"search=notes", 2},
		{"search=NOTES", 2},
		{"search=trip", 1},
		{"category=travel", 1},
		{"category=technology", 2},
		{"category=unknown", 0},
		{"author=" + aliceID, 1},
	}
	for _, tc := range cases {
		_, resp := ts.do(http.MethodGet, "/api/posts?"+tc.query, nil, nil)
		if resp.Total != tc.want {
			t.Fatalf("%s: total %d, want %d", tc.query, resp.Total, tc.want)
		}
	}
}

func TestComments(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup("alice")
	bob, _ := ts.signup("bob")
	root, _ := ts.signup("root")
	post := ts.createPost(alice, "Commented")

	w, _ := ts.do(http.MethodPost, "/api/comments", map[string]string{"postId": post.ID, "content": "   "}, bob)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank content code %d", w.Code)
	}
	w, _ = ts.do(http.MethodPost, "/api/comments", map[string]string{"content": "hi"}, bob)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing post code %d", w.Code)
	}
	w, _ = ts.do(http.MethodPost, "/api/comments", map[string]string{"postId": models.NewID(), "content": "hi"}, bob)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown post code %d", w.Code)
	}

	w, resp := ts.do(http.MethodPost, "/api/comments", map[string]string{"postId": post.ID, "content": "  first  "}, bob)
	if w.Code != http.StatusCreated {
		t.Fatalf("add code %d", w.Code)
	}
	var first struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Author  struct {
			Username string `json:"username"`
		} `json:"author"`
	}
	decode(t, resp.Data, &first)
	if first.Content != "first" || first.Author.Username != "bob" {
		t.Fatalf("comment %+v", first)
	}
	ts.do(http.MethodPost, "/api/comments", map[string]string{"postId": post.ID, "content": "second"}, alice)

	_, resp = ts.do(http.MethodGet, "/api/comments/"+post.ID, nil, nil)
	var list []struct {
		Content string `json:"content"`
	}
	decode(t, resp.Data, &list)
	if len(list) != 2 || list[0].Content != "second" {
		t.Fatalf("list %+v", list)
	}

	// only the author deletes; admins get no override
	for _, c := range []*http.Cookie{alice, root} {
		w, _ = ts.do(http.MethodDelete, "/api/comments/"+first.ID, nil, c)
		if w.Code != http.StatusForbidden {
			t.Fatalf("non-author delete code %d", w.Code)
		}
	}
	w, _ = ts.do(http.MethodDelete, "/api/comments/"+first.ID, nil, bob)
	if w.Code != http.StatusOK {
		t.Fatalf("author delete code %d", w.Code)
	}
	w, _ = ts.do(http.MethodDelete, "/api/comments/"+first.ID, nil, bob)
	if w.Code != http.StatusNotFound {
		t.Fatalf("repeat delete code %d", w.Code)
	}
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")

	_, resp := ts.do(http.MethodGet, "/api/categories", nil, nil)
	var cats []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	decode(t, resp.Data, &cats)
	if len(cats) != len(models.CategoryNames) {
		t.Fatalf("categories %d", len(cats))
	}
	for i := 1; i < len(cats); i++ {
		if cats[i-1].Name > cats[i].Name {
			t.Fatalf("not sorted: %q before %q", cats[i-1].Name, cats[i].Name)
		}
	}

	w, _ := ts.do(http.MethodPost, "/api/categories", map[string]string{"name": "Gardening"}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-set code %d", w.Code)
	}
	w, resp = ts.do(http.MethodPost, "/api/categories", map[string]string{"name": "Technology"}, cookie)
	if w.Code != http.StatusBadRequest || resp.Message != "Category already exists" {
		t.Fatalf("duplicate code %d message %q", w.Code, resp.Message)
	}
	w, _ = ts.do(http.MethodPost, "/api/categories", map[string]string{"name": "Technology"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous code %d", w.Code)
	}

	// free a name and recreate it with a description
	long := strings.Repeat("x", models.MaxCategoryDescription+1)
	if err := ts.deleteCategory("Opinion"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w, _ = ts.do(http.MethodPost, "/api/categories", map[string]string{"name": "Opinion", "description": long}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("long description code %d", w.Code)
	}
	w, resp = ts.do(http.MethodPost, "/api/categories", map[string]string{"name": "Opinion", "description": "Hot takes"}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create code %d %s", w.Code, resp.Message)
	}
	var created struct {
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	decode(t, resp.Data, &created)
	if created.Slug != "opinion" || created.Description != "Hot takes" {
		t.Fatalf("created %+v", created)
	}
}

func (ts *testServer) deleteCategory(name string) error {
	cat, err := ts.store.Categories.FindBySlug(context.Background(), strings.ToLower(name))
	if err != nil {
		return err
	}
	return ts.db.Delete(cat).Error
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup("alice")
	ts.signup("bob")

	w, resp := ts.do(http.MethodPatch, "/api/users/update", map[string]string{"username": "bob"}, alice)
	if w.Code != http.StatusBadRequest || resp.Message != "Username already taken" {
		t.Fatalf("taken code %d message %q", w.Code, resp.Message)
	}
	w, resp = ts.do(http.MethodPatch, "/api/users/update", map[string]string{"email": "bob@example.com"}, alice)
	if w.Code != http.StatusBadRequest || resp.Message != "Email already exists" {
		t.Fatalf("email code %d message %q", w.Code, resp.Message)
	}

	w, resp = ts.do(http.MethodPatch, "/api/users/update", map[string]string{
		"username": "alicia", "avatar": "https://img.example/a.png",
	}, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("update code %d %s", w.Code, resp.Message)
	}
	var profile map[string]interface{}
	decode(t, resp.Data, &profile)
	if profile["username"] != "alicia" || profile["email"] != "alice@example.com" || profile["avatar"] != "https://img.example/a.png" {
		t.Fatalf("profile %v", profile)
	}

	// the reissued cookie carries the new name
	fresh := sessionCookie(w)
	if fresh == nil {
		t.Fatalf("no reissued cookie")
	}
	w, _ = ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alicia", "password": "secret123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login with new name code %d", w.Code)
	}
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup("alice")

	cases := []struct {
		body    map[string]string
		message string
	}{
		{map[string]string{"currentPassword": "secret123"}, "All fields are required"},
		{map[string]string{"currentPassword": "secret123", "newPassword": "123"}, "New password must be at least 6 characters long"},
		{map[string]string{"currentPassword": "wrong", "newPassword": "brandnew"}, "Incorrect current password"},
	}
	for _, tc := range cases {
		w, resp := ts.do(http.MethodPatch, "/api/users/change-password", tc.body, alice)
		if w.Code != http.StatusBadRequest || resp.Message != tc.message {
			t.Fatalf("code %d message %q, want %q", w.Code, resp.Message, tc.message)
		}
	}

	w, _ := ts.do(http.MethodPatch, "/api/users/change-password", map[string]string{"currentPassword": "secret123", "newPassword": "brandnew"}, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("change code %d", w.Code)
	}
	w, _ = ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret123"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password code %d", w.Code)
	}
	w, _ = ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "brandnew"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("new password code %d", w.Code)
	}
}

func TestProfileOfVanishedUser(t *testing.T) {
	ts := newTestServer(t)
	alice, id := ts.signup("alice")
	if err := ts.db.Where("id = ?", id).Delete(&models.User{}).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	w, _ := ts.do(http.MethodPatch, "/api/users/update", map[string]string{"avatar": "x"}, alice)
	if w.Code != http.StatusNotFound {
		t.Fatalf("code %d", w.Code)
	}
}

func TestStatsAndSiteConfig(t *testing.T) {
	ts := newTestServer(t)
	cookie, _ := ts.signup("alice")
	post := ts.createPost(cookie, "Counted")
	ts.do(http.MethodGet, "/api/posts/"+post.ID, nil, nil)

	_, resp := ts.do(http.MethodGet, "/api/stats", nil, nil)
	var stats store.Stats
	decode(t, resp.Data, &stats)
	if stats.Users != 1 || stats.Posts != 1 || stats.Categories != int64(len(models.CategoryNames)) || stats.Views != 1 {
		t.Fatalf("stats %+v", stats)
	}

	_, resp = ts.do(http.MethodGet, "/api/config", nil, nil)
	var site struct {
		Categories     []string `json:"categories"`
		OAuthProviders []string `json:"oauthProviders"`
	}
	decode(t, resp.Data, &site)
	if len(site.Categories) != len(models.CategoryNames) || len(site.OAuthProviders) != 0 {
		t.Fatalf("site %+v", site)
	}
}

func TestOAuthUnconfiguredAndBadState(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(http.MethodGet, "/api/auth/oauth/github/login", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unconfigured code %d", w.Code)
	}
	w, _ = ts.do(http.MethodGet, "/api/auth/oauth/myspace/login", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown provider code %d", w.Code)
	}
	w, _ = ts.do(http.MethodGet, "/api/auth/oauth/github/callback?code=x", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing state code %d", w.Code)
	}
}

func TestOAuthRedirectIssuesSingleUseState(t *testing.T) {
	ts := newTestServer(t)
	cfg := config.Get()
	cfg.GitHubClientID = "id"
	cfg.GitHubClientSecret = "secret"
	config.Set(cfg)

	w, resp := ts.do(http.MethodGet, "/api/auth/oauth/github/login", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code %d", w.Code)
	}
	var out struct {
		AuthorizationURL string `json:"authorizationUrl"`
		State            string `json:"state"`
	}
	decode(t, resp.Data, &out)
	if out.State == "" || !strings.Contains(out.AuthorizationURL, "state="+out.State) {
		t.Fatalf("redirect %+v", out)
	}
	if !strings.Contains(out.AuthorizationURL, "github.com") {
		t.Fatalf("url %s", out.AuthorizationURL)
	}
}
