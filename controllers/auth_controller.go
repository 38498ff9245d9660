package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/middleware"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthController handles registration, login and sessions.
type AuthController struct {
	store *store.Store
}

// NewAuthController creates an AuthController.
func NewAuthController(s *store.Store) *AuthController {
	return &AuthController{store: s}
}

// Register creates a local account. Validation runs in a fixed order and stops at the first failure.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	details := map[string]string{}
	if req.Username == "" {
		details["username"] = "Username is required"
	}
	if req.Email == "" {
		details["email"] = "Email is required"
	}
	if req.Password == "" {
		details["password"] = "Password is required"
	}
	if len(details) > 0 {
		err := utils.BadRequest(40001, "All fields are required")
		err.Details = details
		utils.Fail(ctx, err)
		return
	}
	if !emailPattern.MatchString(req.Email) {
		utils.Fail(ctx, utils.BadRequest(40002, "Invalid email format"))
		return
	}
	if len(req.Password) < minPasswordLen {
		utils.Fail(ctx, utils.BadRequest(40003, "Password must be at least 6 characters long"))
		return
	}
	if len([]rune(req.Username)) < minUsernameLen {
		utils.Fail(ctx, utils.BadRequest(40004, "Username must be at least 3 characters long"))
		return
	}

	usernameTaken, emailTaken, err := a.store.Users.Taken(ctx.Request.Context(), req.Username, req.Email)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	switch {
	case usernameTaken && emailTaken:
		utils.Fail(ctx, utils.Conflict(40901, "Username and email already exist"))
		return
	case emailTaken:
		utils.Fail(ctx, utils.Conflict(40902, "Email already exists"))
		return
	case usernameTaken:
		utils.Fail(ctx, utils.Conflict(40903, "Username already exists"))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if config.Get().IsAdminUsername(user.Username) {
		user.Role = models.RoleAdmin
	}

	// a concurrent registration can still win the unique index; Fail reports the field
	if err := a.store.Users.Create(ctx.Request.Context(), &user); err != nil {
		utils.Fail(ctx, err)
		return
	}

	utils.L().Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	utils.Created(ctx, "User registered successfully", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Login verifies user credentials and issues the session cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		utils.Fail(ctx, utils.BadRequest(40005, "Username and password are required"))
		return
	}

	invalid := utils.Unauthorized(40106, "Invalid credentials")
	user, err := a.store.Users.FindByUsername(ctx.Request.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		utils.Fail(ctx, invalid)
		return
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Fail(ctx, invalid)
		return
	}

	if err := issueSession(ctx, user); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, "Login successful", sanitizeUserResponse(*user))
}

// Logout clears the session cookie and revokes the token until it expires. It always succeeds.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := utils.SessionToken(ctx); token != "" {
		if claims, err := utils.ParseToken(token); err == nil {
			utils.BlacklistToken(token, utils.TokenExpiry(claims))
		}
	}
	utils.ClearSessionCookie(ctx)
	utils.Success(ctx, "Logged out successfully", nil)
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := a.store.Users.FindByID(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if errors.Is(err, store.ErrNotFound) {
		utils.Fail(ctx, utils.NotFound(40402, "User not found"))
		return
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, "success", sanitizeUserResponse(*user))
}

// issueSession signs a token for user and sets it as the session cookie.
func issueSession(ctx *gin.Context, user *models.User) error {
	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, utils.TokenTTL)
	if err != nil {
		return err
	}
	utils.SetSessionCookie(ctx, token)
	return nil
}
