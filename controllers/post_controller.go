package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/utils"
)

// PostController exposes the post feed, post detail and post lifecycle.
type PostController struct {
	engine *feed.Service
}

// NewPostController creates a new PostController instance.
func NewPostController(engine *feed.Service) *PostController {
	return &PostController{engine: engine}
}

// CreatePost creates a root post or a threaded comment.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title             string `json:"title"`
		Content           string `json:"content" binding:"required,max=512"`
		AssetSymbol       string `json:"asset_symbol"`
		Sentiment         string `json:"sentiment"`
		ThesisID          *uint  `json:"thesis_id"`
		CommentOnPostID   *uint  `json:"comment_on_post_id"`
		CommentOnThesisID *uint  `json:"comment_on_thesis_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "content cannot be empty")
		return
	}

	sentiment := models.Sentiment(req.Sentiment)
	if req.Sentiment != "" && !sentiment.Valid() {
		utils.Error(ctx, http.StatusBadRequest, 40022, "sentiment must be Bull or Bear")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{
		UserID:            userID,
		Username:          getUsername(ctx),
		Title:             utils.Sanitize(strings.TrimSpace(req.Title)),
		Content:           content,
		AssetSymbol:       strings.ToUpper(strings.TrimSpace(req.AssetSymbol)),
		Sentiment:         sentiment,
		ThesisID:          req.ThesisID,
		CommentOnPostID:   req.CommentOnPostID,
		CommentOnThesisID: req.CommentOnThesisID,
	}

	if err := p.engine.CreatePost(ctx.Request.Context(), &post); err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{"post": post})
}

// ListPosts returns the filtered post feed for the viewer, annotated with
// the viewer's reactions and one level of replies.
func (p *PostController) ListPosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	filter := repos.PostFilter{
		AssetSymbol: strings.ToUpper(strings.TrimSpace(ctx.Query("asset_symbol"))),
		Sentiment:   models.Sentiment(ctx.Query("sentiment")),
	}
	if id, ok := parseQueryID(ctx, "user_id"); ok {
		filter.UserID = &id
	}
	if id, ok := parseQueryID(ctx, "thesis_id"); ok {
		filter.ThesisID = &id
	}
	if id, ok := parseQueryID(ctx, "comment_on_post_id"); ok {
		filter.CommentOnPostID = &id
	}
	if id, ok := parseQueryID(ctx, "comment_on_thesis_id"); ok {
		filter.CommentOnThesisID = &id
	}

	posts, total, err := p.engine.PostFeed(ctx.Request.Context(), userID, filter, repos.Page{Number: page, Size: pageSize})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, paginated(posts, page, pageSize, total))
}

// GetPost returns one post with its resolved thread.
func (p *PostController) GetPost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}

	post, err := p.engine.GetPostDetail(ctx.Request.Context(), userID, postID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost edits the viewer's own post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}

	var req struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	stores := p.engine.Stores()
	post, err := stores.Content().GetPost(ctx.Request.Context(), repos.PostFilter{PostID: &postID})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if post.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "not allowed")
		return
	}

	if req.Title != nil {
		post.Title = utils.Sanitize(strings.TrimSpace(*req.Title))
	}
	if req.Content != nil {
		content := utils.Sanitize(strings.TrimSpace(*req.Content))
		if content == "" {
			utils.Error(ctx, http.StatusBadRequest, 40021, "content cannot be empty")
			return
		}
		if len(content) > 512 {
			utils.Error(ctx, http.StatusBadRequest, 40026, "content exceeds 512 characters")
			return
		}
		post.Content = content
	}

	if err := stores.Content().UpdatePost(ctx.Request.Context(), post); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes the viewer's own post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}

	if err := p.engine.DeletePost(ctx.Request.Context(), userID, postID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

// ReactToPost records a like on a post.
func (p *PostController) ReactToPost(ctx *gin.Context) {
	reactToContent(ctx, p.engine, models.KindPost)
}

// RemovePostReaction withdraws the viewer's reaction from a post.
func (p *PostController) RemovePostReaction(ctx *gin.Context) {
	removeReaction(ctx, p.engine, models.KindPost)
}

func reactToContent(ctx *gin.Context, engine *feed.Service, kind models.ContentKind) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	contentID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid content id")
		return
	}

	var req struct {
		Value int `json:"value" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid request payload")
		return
	}

	if err := engine.React(ctx.Request.Context(), userID, kind, contentID, req.Value); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"value": req.Value})
}

func removeReaction(ctx *gin.Context, engine *feed.Service, kind models.ContentKind) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	contentID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid content id")
		return
	}

	if err := engine.Unreact(ctx.Request.Context(), userID, kind, contentID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"removed": true})
}

func parseQueryID(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
