package feed

import (
	"context"
	"time"

	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/utils"
)

// NotificationView is a notification enriched for display: the event, the
// acting user's name, and the affected content. Content deleted since the
// event fired is reported as null rather than failing the feed.
type NotificationView struct {
	NotificationID uint             `json:"notification_id"`
	EventID        uint             `json:"event_id"`
	Type           models.EventType `json:"type"`
	ActorID        uint             `json:"actor_id"`
	ActorName      string           `json:"actor_name"`
	Acknowledged   bool             `json:"acknowledged"`
	CreatedAt      time.Time        `json:"created_at"`

	Post    *models.Post   `json:"post,omitempty"`
	Thesis  *models.Thesis `json:"thesis,omitempty"`
	Comment *models.Post   `json:"comment,omitempty"`
}

// Notifications returns the user's unacknowledged notifications newest
// first, enriched with the affected content in two batch loads.
func (s *Service) Notifications(ctx context.Context, userID uint, page repos.Page) ([]NotificationView, int64, error) {
	rows, total, err := s.stores.Notifications().ListUnacknowledged(ctx, userID, page)
	if err != nil {
		return nil, 0, err
	}

	postIDs := make([]uint, 0, len(rows))
	thesisIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.Event.AffectedPostID != nil {
			postIDs = append(postIDs, *row.Event.AffectedPostID)
		}
		if row.Event.AffectedThesisID != nil {
			thesisIDs = append(thesisIDs, *row.Event.AffectedThesisID)
		}
		if row.Event.CommentID != nil {
			postIDs = append(postIDs, *row.Event.CommentID)
		}
	}

	postMap := make(map[uint]*models.Post)
	if len(postIDs) > 0 {
		ids := utils.UniqueUint(postIDs)
		posts, _, err := s.stores.Content().QueryPosts(ctx,
			repos.PostFilter{IDs: ids}, repos.Page{Number: 1, Size: len(ids)})
		if err != nil {
			return nil, 0, err
		}
		for _, p := range posts {
			postMap[p.ID] = p
		}
	}

	thesisMap := make(map[uint]*models.Thesis)
	if len(thesisIDs) > 0 {
		ids := utils.UniqueUint(thesisIDs)
		theses, _, err := s.stores.Content().QueryTheses(ctx,
			repos.ThesisFilter{IDs: ids}, repos.Page{Number: 1, Size: len(ids)})
		if err != nil {
			return nil, 0, err
		}
		for _, t := range theses {
			thesisMap[t.ID] = t
		}
	}

	views := make([]NotificationView, 0, len(rows))
	for _, row := range rows {
		view := NotificationView{
			NotificationID: row.Notification.ID,
			EventID:        row.Event.ID,
			Type:           row.Event.Type,
			ActorID:        row.Notification.UserWhoFiredEvent,
			ActorName:      row.ActorName,
			Acknowledged:   row.Notification.Acknowledged,
			CreatedAt:      row.Notification.CreatedAt,
		}
		if row.Event.AffectedPostID != nil {
			view.Post = postMap[*row.Event.AffectedPostID]
		}
		if row.Event.AffectedThesisID != nil {
			view.Thesis = thesisMap[*row.Event.AffectedThesisID]
		}
		if row.Event.CommentID != nil {
			view.Comment = postMap[*row.Event.CommentID]
		}
		views = append(views, view)
	}
	return views, total, nil
}

// AcknowledgeNotification marks the user's own notification as read.
// Acknowledging one that is already read succeeds without changing anything.
func (s *Service) AcknowledgeNotification(ctx context.Context, userID, notificationID uint) error {
	notification, err := s.stores.Notifications().GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserToNotify != userID {
		return repos.ErrForbidden
	}
	if notification.Acknowledged {
		return nil
	}
	return s.stores.Notifications().Acknowledge(ctx, notificationID)
}
