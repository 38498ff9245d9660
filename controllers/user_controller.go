package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/middleware"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

// UserController lets users manage their own account.
type UserController struct {
	store *store.Store
}

func NewUserController(s *store.Store) *UserController {
	return &UserController{store: s}
}

var errUserNotFound = utils.NotFound(40402, "User not found")

// UpdateProfile changes username, email or avatar. Empty fields are left unchanged.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}

	reqCtx := ctx.Request.Context()
	user, err := u.store.Users.FindByID(reqCtx, middleware.CurrentUserID(ctx))
	if errors.Is(err, store.ErrNotFound) {
		utils.Fail(ctx, errUserNotFound)
		return
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	username := strings.TrimSpace(req.Username)
	renamed := username != "" && username != user.Username
	if renamed {
		if len([]rune(username)) < minUsernameLen {
			utils.Fail(ctx, utils.BadRequest(40004, "Username must be at least 3 characters long"))
			return
		}
		taken, err := u.store.Users.UsernameTakenByOther(reqCtx, username, user.ID)
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
		if taken {
			utils.Fail(ctx, utils.Conflict(40904, "Username already taken"))
			return
		}
		user.Username = username
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		if !emailPattern.MatchString(email) {
			utils.Fail(ctx, utils.BadRequest(40002, "Invalid email format"))
			return
		}
		user.Email = email
	}
	if avatar := strings.TrimSpace(req.Avatar); avatar != "" {
		user.Avatar = avatar
	}

	if err := u.store.Users.Save(reqCtx, user); err != nil {
		utils.Fail(ctx, err)
		return
	}
	if renamed {
		// the token carries the username
		if err := issueSession(ctx, user); err != nil {
			utils.Fail(ctx, err)
			return
		}
	}
	utils.InvalidateByPrefix(utils.CachePostsList)
	utils.Success(ctx, "Profile updated successfully", sanitizeUserResponse(*user))
}

// ChangePassword replaces the password after verifying the current one.
func (u *UserController) ChangePassword(ctx *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		utils.Fail(ctx, utils.BadRequest(40001, "All fields are required"))
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		utils.Fail(ctx, utils.BadRequest(40003, "New password must be at least 6 characters long"))
		return
	}

	reqCtx := ctx.Request.Context()
	user, err := u.store.Users.FindByID(reqCtx, middleware.CurrentUserID(ctx))
	if errors.Is(err, store.ErrNotFound) {
		utils.Fail(ctx, errUserNotFound)
		return
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		utils.Fail(ctx, utils.BadRequest(40006, "Incorrect current password"))
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	user.PasswordHash = hash
	if err := u.store.Users.Save(reqCtx, user); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, "Password changed successfully", nil)
}
