package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the role carried by the token.
	ContextRoleKey = "role"
	// ContextTokenKey keeps the raw token so logout can revoke it.
	ContextTokenKey = "token"
	// ContextPostKey holds the post loaded by PostOwner.
	ContextPostKey = "post"
)

// Step is one interceptor of a request pipeline. A non-nil error stops the
// pipeline and is written as the response.
type Step func(ctx *gin.Context) error

// Pipeline runs steps in order and continues to the handler only if all of them pass.
func Pipeline(steps ...Step) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		for _, step := range steps {
			if err := step(ctx); err != nil {
				utils.Fail(ctx, err)
				return
			}
		}
		ctx.Next()
	}
}

// AuthRequired is the pipeline that only authenticates.
func AuthRequired() gin.HandlerFunc {
	return Pipeline(Authenticate())
}

// Authenticate verifies the session cookie and attaches the identity to the context.
// A revoked or unverifiable token is also cleared from the client.
func Authenticate() Step {
	return func(ctx *gin.Context) error {
		token := utils.SessionToken(ctx)
		if token == "" {
			return utils.Unauthorized(40101, "Access denied. Not authenticated.")
		}

		if utils.IsTokenBlacklisted(token) {
			utils.ClearSessionCookie(ctx)
			return utils.Unauthorized(40102, "Token revoked")
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.ClearSessionCookie(ctx)
			return utils.Unauthorized(40103, "Invalid or expired token")
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextRoleKey, claims.Role)
		ctx.Set(ContextTokenKey, token)
		return nil
	}
}

// PostFinder loads a post by id.
type PostFinder interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
}

// PostOwner lets the request through when the caller wrote the post named by
// the :id parameter or is an admin. It must run after Authenticate.
func PostOwner(posts PostFinder) Step {
	return func(ctx *gin.Context) error {
		post, err := posts.FindByID(ctx.Request.Context(), ctx.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			return utils.NotFound(40401, "Post not found")
		}
		if err != nil {
			return err
		}
		if post.AuthorID != CurrentUserID(ctx) && CurrentRole(ctx) != models.RoleAdmin {
			return utils.Forbidden(40301, "You are not authorized to perform this action on this post.")
		}
		ctx.Set(ContextPostKey, post)
		return nil
	}
}

// CurrentUserID returns the authenticated user id, or "" outside an authenticated route.
func CurrentUserID(ctx *gin.Context) string {
	return ctx.GetString(ContextUserIDKey)
}

// CurrentUsername returns the username carried by the session token.
func CurrentUsername(ctx *gin.Context) string {
	return ctx.GetString(ContextUsernameKey)
}

func CurrentRole(ctx *gin.Context) string {
	return ctx.GetString(ContextRoleKey)
}

// CurrentPost returns the post attached by PostOwner.
func CurrentPost(ctx *gin.Context) (*models.Post, bool) {
	v, ok := ctx.Get(ContextPostKey)
	if !ok {
		return nil, false
	}
	post, ok := v.(*models.Post)
	return post, ok
}
