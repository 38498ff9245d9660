package controllers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

// CategoryController serves the category taxonomy.
type CategoryController struct {
	store *store.Store
}

func NewCategoryController(s *store.Store) *CategoryController {
	return &CategoryController{store: s}
}

// ListCategories returns all categories sorted by name.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	cats, err := c.store.Categories.List(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, "success", cats)
}

// CreateCategory adds one of the fixed category names. Any authenticated user may call it.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "Invalid request payload")
		return
	}

	name := strings.TrimSpace(req.Name)
	if !models.IsCategoryName(name) {
		utils.Fail(ctx, utils.BadRequest(40040, "Invalid category name"))
		return
	}

	category := models.Category{Name: name}
	if req.Description != nil {
		desc := utils.SanitizeText(*req.Description)
		if utf8.RuneCountInString(desc) > models.MaxCategoryDescription {
			utils.Fail(ctx, utils.BadRequest(40041, "Description cannot be more than 200 characters"))
			return
		}
		if desc != "" {
			category.Description = &desc
		}
	}

	if err := c.store.Categories.Create(ctx.Request.Context(), &category); err != nil {
		if _, ok := store.AsConflict(err); ok {
			err = utils.Conflict(40940, "Category already exists")
		}
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CacheStats)
	utils.Created(ctx, "Category created successfully", category)
}
