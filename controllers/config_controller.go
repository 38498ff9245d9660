package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/utils"
)

// ConfigController serves public, configuration-driven settings for clients.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetSiteConfig returns the category names, content formats and enabled login providers.
func (c *ConfigController) GetSiteConfig(ctx *gin.Context) {
	utils.Success(ctx, "success", gin.H{
		"categories":             models.CategoryNames,
		"contentFormats":         []string{models.FormatHTML, models.FormatMarkdown},
		"maxCategoryDescription": models.MaxCategoryDescription,
		"oauthProviders":         enabledProviders(),
		"maxPageSize":            maxPageSize,
	})
}
