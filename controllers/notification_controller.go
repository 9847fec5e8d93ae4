package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/utils"
)

// NotificationController exposes the unacknowledged notification feed.
type NotificationController struct {
	engine *feed.Service
}

// NewNotificationController creates a new NotificationController instance.
func NewNotificationController(engine *feed.Service) *NotificationController {
	return &NotificationController{engine: engine}
}

// ListNotifications returns the viewer's pending notifications newest first,
// enriched with the acting user and the affected content.
func (n *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	views, total, err := n.engine.Notifications(ctx.Request.Context(), userID, repos.Page{Number: page, Size: pageSize})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, paginated(views, page, pageSize, total))
}

// AcknowledgeNotification marks one of the viewer's notifications as read.
func (n *NotificationController) AcknowledgeNotification(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	notificationID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid notification id")
		return
	}

	if err := n.engine.AcknowledgeNotification(ctx.Request.Context(), userID, notificationID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"acknowledged": true})
}
