package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/utils"
)

// BlockController manages directed block edges between users.
type BlockController struct {
	db     *gorm.DB
	engine *feed.Service
}

// NewBlockController creates a new BlockController instance.
func NewBlockController(db *gorm.DB, engine *feed.Service) *BlockController {
	return &BlockController{db: db, engine: engine}
}

// BlockUser records a block from the viewer to the target user.
func (b *BlockController) BlockUser(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	targetID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return
	}
	if targetID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40051, "cannot block yourself")
		return
	}

	var target models.User
	if err := b.db.First(&target, targetID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	if err := b.engine.Block(ctx.Request.Context(), userID, targetID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"blocked_user_id": targetID})
}

// UnblockUser removes the viewer's block on the target user.
func (b *BlockController) UnblockUser(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	targetID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return
	}

	if err := b.engine.Unblock(ctx.Request.Context(), userID, targetID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"unblocked_user_id": targetID})
}

// ListBlocks returns the ids the viewer has blocked and the ids blocking
// the viewer.
func (b *BlockController) ListBlocks(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	blocks, err := b.engine.Stores().Blocks().ListBlocksBy(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	blockedBy, err := b.engine.Stores().Blocks().ListBlocksOn(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"blocks": blocks, "blocked_by": blockedBy})
}
