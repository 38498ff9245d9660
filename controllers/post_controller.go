package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkpress/inkpress/middleware"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PostController manages CRUD operations for posts.
type PostController struct {
	store *store.Store
}

// NewPostController creates a new PostController instance.
func NewPostController(s *store.Store) *PostController {
	return &PostController{store: s}
}

var errDuplicateTitle = utils.Conflict(40920, "A post with this title already exists.")

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title         string `json:"title"`
		Content       string `json:"content"`
		ContentFormat string `json:"contentFormat"`
		Category      string `json:"category"`
		Thumbnail     string `json:"thumbnail"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.Category) == "" {
		utils.Fail(ctx, utils.BadRequest(40020, "Title, content and category are required"))
		return
	}

	category, err := p.resolveCategory(ctx, req.Category)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	content, source, format, err := renderContent(req.ContentFormat, req.Content)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	post := models.Post{
		Title:         title,
		Content:       content,
		ContentFormat: format,
		Source:        source,
		AuthorID:      middleware.CurrentUserID(ctx),
		CategoryID:    category.ID,
		Thumbnail:     strings.TrimSpace(req.Thumbnail),
	}
	if err := p.store.Posts.Create(ctx.Request.Context(), &post); err != nil {
		failPostWrite(ctx, err)
		return
	}

	created, err := p.store.Posts.Get(ctx.Request.Context(), post.ID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches()
	utils.L().Info("post created",
		zap.String("post_id", created.ID),
		zap.String("slug", created.Slug),
		zap.String("username", middleware.CurrentUsername(ctx)),
	)
	utils.Created(ctx, "Post created successfully", newPostView(created))
}

// ListPosts returns one page of posts, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	search := strings.TrimSpace(ctx.Query("search"))
	categoryRef := strings.TrimSpace(ctx.Query("category"))
	author := strings.TrimSpace(ctx.Query("author"))

	cacheKey := fmt.Sprintf("%ssearch=%s:cat=%s:author=%s:page=%d:limit=%d",
		utils.CachePostsList, strings.ToLower(search), categoryRef, author, page, limit)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	filter := store.PostFilter{Search: search, AuthorID: author, Page: page, Limit: limit}
	if categoryRef != "" {
		category, err := p.store.Categories.Resolve(ctx.Request.Context(), categoryRef)
		if errors.Is(err, store.ErrNotFound) {
			utils.Paged(ctx, "success", []postView{}, 0, page, limit)
			return
		}
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
		filter.CategoryID = category.ID
	}

	posts, total, err := p.store.Posts.List(ctx.Request.Context(), filter)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	resp := utils.NewPagedResponse("success", newPostViews(posts), total, page, limit)
	utils.CacheSetJSON(cacheKey, resp, 0)
	ctx.JSON(http.StatusOK, resp)
}

// GetPost returns a post by id or slug and counts the view.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.store.Posts.View(ctx.Request.Context(), ctx.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		utils.Fail(ctx, utils.NotFound(40401, "Post not found"))
		return
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, "success", newPostView(post))
}

// UpdatePost applies a partial update. Ownership is checked by middleware.PostOwner.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	post, ok := middleware.CurrentPost(ctx)
	if !ok {
		utils.Fail(ctx, utils.NotFound(40401, "Post not found"))
		return
	}

	var req struct {
		Title         *string `json:"title"`
		Content       *string `json:"content"`
		ContentFormat *string `json:"contentFormat"`
		Category      *string `json:"category"`
		Thumbnail     *string `json:"thumbnail"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			utils.Fail(ctx, utils.BadRequest(40021, "Title cannot be empty"))
			return
		}
		post.Title = title
	}
	if req.Content != nil || req.ContentFormat != nil {
		format := post.ContentFormat
		if req.ContentFormat != nil {
			format = *req.ContentFormat
		}
		var raw string
		switch {
		case req.Content != nil:
			raw = *req.Content
		case format == post.ContentFormat:
			raw = post.Content
			if format == models.FormatMarkdown {
				raw = post.Source
			}
		default:
			utils.Fail(ctx, utils.BadRequest(40023, "Content is required when changing the content format"))
			return
		}
		if strings.TrimSpace(raw) == "" {
			utils.Fail(ctx, utils.BadRequest(40024, "Content cannot be empty"))
			return
		}
		content, source, format, err := renderContent(format, raw)
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
		post.Content, post.Source, post.ContentFormat = content, source, format
	}
	if req.Category != nil {
		category, err := p.resolveCategory(ctx, *req.Category)
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
		post.CategoryID = category.ID
	}
	if req.Thumbnail != nil {
		post.Thumbnail = strings.TrimSpace(*req.Thumbnail)
	}

	if err := p.store.Posts.Save(ctx.Request.Context(), post); err != nil {
		failPostWrite(ctx, err)
		return
	}

	updated, err := p.store.Posts.Get(ctx.Request.Context(), post.ID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches()
	utils.Success(ctx, "Post updated successfully", newPostView(updated))
}

// DeletePost removes a post together with its comments. Ownership is checked by middleware.PostOwner.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id := ctx.Param("id")
	removed, err := p.store.Posts.Delete(ctx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		utils.Fail(ctx, utils.NotFound(40401, "Post not found"))
		return
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches()
	utils.L().Info("post deleted",
		zap.String("post_id", id),
		zap.Int64("comments_deleted", removed),
		zap.String("username", middleware.CurrentUsername(ctx)),
	)
	utils.Success(ctx, "Post deleted successfully", gin.H{"id": id, "commentsDeleted": removed})
}

func (p *PostController) resolveCategory(ctx *gin.Context, ref string) (*models.Category, error) {
	category, err := p.store.Categories.Resolve(ctx.Request.Context(), strings.TrimSpace(ref))
	if errors.Is(err, store.ErrNotFound) {
		return nil, utils.BadRequest(40022, "Category not found")
	}
	return category, err
}

// renderContent returns the stored HTML body, the markdown source if any, and the normalised format.
func renderContent(format, raw string) (content, source, normalized string, err error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", models.FormatHTML:
		return utils.Sanitize(raw), "", models.FormatHTML, nil
	case models.FormatMarkdown:
		html, err := utils.RenderMarkdown(raw)
		if err != nil {
			return "", "", "", err
		}
		return utils.Sanitize(html), raw, models.FormatMarkdown, nil
	default:
		return "", "", "", utils.BadRequest(40025, "Content format must be html or markdown")
	}
}

// failPostWrite reports a title or slug collision with one message.
func failPostWrite(ctx *gin.Context, err error) {
	if _, ok := store.AsConflict(err); ok {
		utils.Fail(ctx, errDuplicateTitle)
		return
	}
	utils.Fail(ctx, err)
}

func invalidatePostCaches() {
	utils.InvalidateByPrefix(utils.CachePostsList)
	utils.InvalidateByPrefix(utils.CacheStats)
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := defaultPageSize
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
		pageSize = s
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}
	return page, pageSize
}
