package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/utils"
)

const statsCacheKey = "cache:stats:platform"

// StatsController provides platform statistics such as content and user counts.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate platform counts, cached briefly in Redis.
func (s *StatsController) GetStats(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(statsCacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var userCount int64
	var postCount int64
	var thesisCount int64
	var reactionCount int64
	var rationaleCount int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}
	if err := s.db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := s.db.Model(&models.Thesis{}).Count(&thesisCount).Error; err != nil {
		thesisCount = 0
	}
	if err := s.db.Model(&models.Reaction{}).Count(&reactionCount).Error; err != nil {
		reactionCount = 0
	}
	if err := s.db.Model(&models.Rationale{}).Count(&rationaleCount).Error; err != nil {
		rationaleCount = 0
	}

	payload := utils.JSONResponse{
		Code:    0,
		Message: "success",
		Data: gin.H{
			"user_count":      userCount,
			"post_count":      postCount,
			"thesis_count":    thesisCount,
			"reaction_count":  reactionCount,
			"rationale_count": rationaleCount,
		},
	}
	utils.CacheSetJSON(statsCacheKey, payload, time.Minute)
	ctx.JSON(200, payload)
}
