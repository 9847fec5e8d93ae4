package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/utils"
)

// RationaleController manages the per-user saved-thesis library.
type RationaleController struct {
	engine *feed.Service
}

// NewRationaleController creates a new RationaleController instance.
func NewRationaleController(engine *feed.Service) *RationaleController {
	return &RationaleController{engine: engine}
}

// SaveRationale adds a thesis to the viewer's library, subject to the
// per-(asset, sentiment) bucket cap.
func (r *RationaleController) SaveRationale(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		ThesisID uint `json:"thesis_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	entry, err := r.engine.SaveRationale(ctx.Request.Context(), userID, req.ThesisID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"rationale": entry})
}

// ListRationales returns library entries with their theses joined. Defaults
// to the viewer's own library when no user filter is given.
func (r *RationaleController) ListRationales(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	filter := repos.RationaleFilter{
		AssetSymbol: strings.ToUpper(strings.TrimSpace(ctx.Query("asset_symbol"))),
		Sentiment:   models.Sentiment(ctx.Query("sentiment")),
	}
	if id, ok := parseQueryID(ctx, "user_id"); ok {
		filter.UserID = &id
	} else {
		viewer := userID
		filter.UserID = &viewer
	}
	if id, ok := parseQueryID(ctx, "thesis_id"); ok {
		filter.ThesisID = &id
	}

	entries, total, err := r.engine.RationaleLibrary(ctx.Request.Context(), userID, filter, repos.Page{Number: page, Size: pageSize})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, paginated(entries, page, pageSize, total))
}

// DeleteRationale removes the viewer's own library entry, freeing a slot in
// its bucket.
func (r *RationaleController) DeleteRationale(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	rationaleID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid rationale id")
		return
	}

	if err := r.engine.DeleteRationale(ctx.Request.Context(), userID, rationaleID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}
