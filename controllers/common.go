package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/middleware"
	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 200
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 200 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func getUsername(ctx *gin.Context) string {
	value, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return ""
	}
	name, _ := value.(string)
	return name
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// paginated wraps a page of items in the uniform list envelope.
func paginated(items interface{}, page, pageSize int, total int64) gin.H {
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
		},
	}
}

// respondServiceError maps engine and storage errors onto HTTP responses.
// A full rationale bucket gets a distinct payload so clients can offer the
// user the choice to remove an existing entry.
func respondServiceError(ctx *gin.Context, err error) {
	var capErr *feed.CapacityError
	switch {
	case errors.As(err, &capErr):
		utils.Respond(ctx, http.StatusForbidden, 40310, capErr.Error(), gin.H{
			"asset_symbol": capErr.AssetSymbol,
			"sentiment":    capErr.Sentiment,
			"limit":        capErr.Limit,
		})
	case errors.Is(err, repos.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "resource not found")
	case errors.Is(err, repos.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40301, "not allowed")
	case errors.Is(err, repos.ErrDuplicate):
		utils.Error(ctx, http.StatusConflict, 40901, "already exists")
	case errors.Is(err, repos.ErrEmptyFilter):
		utils.Error(ctx, http.StatusBadRequest, 40001, "at least one filter is required")
	case errors.Is(err, feed.ErrUnsupportedReaction):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42201, "reaction not supported for this content")
	case errors.Is(err, models.ErrConflictingParents):
		utils.Error(ctx, http.StatusBadRequest, 40002, "a post can comment on at most one item")
	case errors.Is(err, models.ErrInvalidEvent):
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid event")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}
