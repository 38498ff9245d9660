package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

// StatsController provides site statistics.
type StatsController struct {
	store *store.Store
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(s *store.Store) *StatsController {
	return &StatsController{store: s}
}

// GetStats returns row counts and the total number of post views.
func (s *StatsController) GetStats(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(utils.CacheStats); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	stats, err := s.store.Stats(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	resp := utils.JSONResponse{Code: 0, Message: "success", Data: stats}
	utils.CacheSetJSON(utils.CacheStats, resp, 0)
	ctx.JSON(http.StatusOK, resp)
}
