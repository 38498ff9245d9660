package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/middleware"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

// CommentController manages comments on posts.
type CommentController struct {
	store *store.Store
}

func NewCommentController(s *store.Store) *CommentController {
	return &CommentController{store: s}
}

// ListComments returns the comments of a post, newest first.
func (c *CommentController) ListComments(ctx *gin.Context) {
	comments, err := c.store.Comments.ListByPost(ctx.Request.Context(), ctx.Param("postId"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, "success", newCommentViews(comments))
}

// AddComment posts a comment as the authenticated user.
func (c *CommentController) AddComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
		PostID  string `json:"postId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		utils.Fail(ctx, utils.BadRequest(40030, "Comment content is required"))
		return
	}
	postID := strings.TrimSpace(req.PostID)
	if postID == "" {
		utils.Fail(ctx, utils.BadRequest(40031, "Post ID is required"))
		return
	}

	if _, err := c.store.Posts.FindByID(ctx.Request.Context(), postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = utils.NotFound(40401, "Post not found")
		}
		utils.Fail(ctx, err)
		return
	}

	comment := models.Comment{
		PostID:   postID,
		AuthorID: middleware.CurrentUserID(ctx),
		Content:  content,
	}
	if err := c.store.Comments.Create(ctx.Request.Context(), &comment); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CacheStats)
	utils.Created(ctx, "Comment added successfully", newCommentView(&comment))
}

// DeleteComment removes a comment. Only its author may do so.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id := ctx.Param("id")
	comment, err := c.store.Comments.FindByID(ctx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		utils.Fail(ctx, utils.NotFound(40403, "Comment not found"))
		return
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if comment.AuthorID != middleware.CurrentUserID(ctx) {
		utils.Fail(ctx, utils.Forbidden(40302, "You can only delete your own comments"))
		return
	}

	if err := c.store.Comments.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = utils.NotFound(40403, "Comment not found")
		}
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CacheStats)
	utils.Success(ctx, "Comment deleted successfully", gin.H{"id": id})
}
