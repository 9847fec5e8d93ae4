package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/utils"
)

// ThesisController exposes the thesis feed, thesis detail and lifecycle.
type ThesisController struct {
	engine *feed.Service
}

// NewThesisController creates a new ThesisController instance.
func NewThesisController(engine *feed.Service) *ThesisController {
	return &ThesisController{engine: engine}
}

// CreateThesis creates a thesis and marks it the author's current view on
// the asset.
func (t *ThesisController) CreateThesis(ctx *gin.Context) {
	var req struct {
		Title       string   `json:"title" binding:"required,min=1"`
		Content     string   `json:"content" binding:"required"`
		AssetSymbol string   `json:"asset_symbol" binding:"required"`
		Sentiment   string   `json:"sentiment" binding:"required"`
		Sources     []string `json:"sources"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	sentiment := models.Sentiment(req.Sentiment)
	if !sentiment.Valid() {
		utils.Error(ctx, http.StatusBadRequest, 40031, "sentiment must be Bull or Bear")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "title cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var sources string
	if len(req.Sources) > 0 {
		b, err := json.Marshal(req.Sources)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40033, "invalid sources")
			return
		}
		sources = string(b)
	}

	thesis := models.Thesis{
		UserID:      userID,
		Username:    getUsername(ctx),
		Title:       title,
		Content:     utils.Sanitize(req.Content),
		Sources:     sources,
		AssetSymbol: strings.ToUpper(strings.TrimSpace(req.AssetSymbol)),
		Sentiment:   sentiment,
	}

	stores := t.engine.Stores()
	err := stores.Transaction(ctx.Request.Context(), func(tx repos.Registry) error {
		if err := tx.Content().CreateThesis(ctx.Request.Context(), &thesis); err != nil {
			return err
		}
		return tx.Content().SetAuthorsCurrent(ctx.Request.Context(), userID, thesis.AssetSymbol, thesis.ID)
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	thesis.IsAuthorsCurrent = true

	utils.Success(ctx, gin.H{"thesis": thesis})
}

// ListTheses returns the filtered thesis feed for the viewer.
func (t *ThesisController) ListTheses(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	filter := repos.ThesisFilter{
		AssetSymbol: strings.ToUpper(strings.TrimSpace(ctx.Query("asset_symbol"))),
		Sentiment:   models.Sentiment(ctx.Query("sentiment")),
	}
	if id, ok := parseQueryID(ctx, "user_id"); ok {
		filter.UserID = &id
	}
	if filter.AssetSymbol == "" && filter.Sentiment == "" && filter.UserID == nil {
		viewer := userID
		filter.UserID = &viewer
	}

	theses, total, err := t.engine.ThesisFeed(ctx.Request.Context(), userID, filter, repos.Page{Number: page, Size: pageSize})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, paginated(theses, page, pageSize, total))
}

// GetThesis returns one thesis with its resolved thread.
func (t *ThesisController) GetThesis(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	thesisID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40034, "invalid thesis id")
		return
	}

	thesis, err := t.engine.GetThesisDetail(ctx.Request.Context(), userID, thesisID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"thesis": thesis})
}

// UpdateThesis edits the viewer's own thesis.
func (t *ThesisController) UpdateThesis(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	thesisID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40034, "invalid thesis id")
		return
	}

	var req struct {
		Title     *string  `json:"title"`
		Content   *string  `json:"content"`
		Sentiment *string  `json:"sentiment"`
		Sources   []string `json:"sources"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	stores := t.engine.Stores()
	thesis, err := stores.Content().GetThesis(ctx.Request.Context(), repos.ThesisFilter{ThesisID: &thesisID})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if thesis.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "not allowed")
		return
	}

	if req.Title != nil {
		title := utils.Sanitize(strings.TrimSpace(*req.Title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40032, "title cannot be empty")
			return
		}
		thesis.Title = title
	}
	if req.Content != nil {
		thesis.Content = utils.Sanitize(*req.Content)
	}
	if req.Sentiment != nil {
		sentiment := models.Sentiment(*req.Sentiment)
		if !sentiment.Valid() {
			utils.Error(ctx, http.StatusBadRequest, 40031, "sentiment must be Bull or Bear")
			return
		}
		thesis.Sentiment = sentiment
	}
	if req.Sources != nil {
		b, err := json.Marshal(req.Sources)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40033, "invalid sources")
			return
		}
		thesis.Sources = string(b)
	}

	if err := stores.Content().UpdateThesis(ctx.Request.Context(), thesis); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"thesis": thesis})
}

// DeleteThesis removes the viewer's own thesis.
func (t *ThesisController) DeleteThesis(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	thesisID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40034, "invalid thesis id")
		return
	}

	stores := t.engine.Stores()
	thesis, err := stores.Content().GetThesis(ctx.Request.Context(), repos.ThesisFilter{ThesisID: &thesisID})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if thesis.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "not allowed")
		return
	}

	if err := stores.Content().DeleteThesis(ctx.Request.Context(), thesisID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

// ReactToThesis records a like or dislike on a thesis.
func (t *ThesisController) ReactToThesis(ctx *gin.Context) {
	reactToContent(ctx, t.engine, models.KindThesis)
}

// RemoveThesisReaction withdraws the viewer's reaction from a thesis.
func (t *ThesisController) RemoveThesisReaction(ctx *gin.Context) {
	removeReaction(ctx, t.engine, models.KindThesis)
}
