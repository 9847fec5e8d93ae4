package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/utils"
)

// NotificationRow is a notification joined with its event and the acting
// user's username.
type NotificationRow struct {
	Notification models.Notification
	Event        models.Event
	ActorName    string
}

// NotificationStore persists interaction events and the notifications that
// address them to users.
type NotificationStore interface {
	// CreateEvent validates the event, then writes the event and its
	// notification together. Invalid events leave nothing behind.
	CreateEvent(ctx context.Context, event *models.Event, userToNotify, actorID uint) error
	GetNotification(ctx context.Context, notificationID uint) (*models.Notification, error)
	// ListUnacknowledged returns the user's pending notifications newest
	// first, joined with event and actor data.
	ListUnacknowledged(ctx context.Context, userID uint, page Page) ([]NotificationRow, int64, error)
	// Acknowledge marks the notification read. Acknowledging twice is a
	// no-op, not an error.
	Acknowledge(ctx context.Context, notificationID uint) error
}

type notificationStore struct {
	db *gorm.DB
}

func (s *notificationStore) CreateEvent(ctx context.Context, event *models.Event, userToNotify, actorID uint) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		notification := models.Notification{
			UserToNotify:      userToNotify,
			UserWhoFiredEvent: actorID,
			EventID:           event.ID,
			Acknowledged:      false,
		}
		return tx.Create(&notification).Error
	})
}

func (s *notificationStore) GetNotification(ctx context.Context, notificationID uint) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).First(&notification, notificationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (s *notificationStore) ListUnacknowledged(ctx context.Context, userID uint, page Page) ([]NotificationRow, int64, error) {
	page = page.Normalize()

	base := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_to_notify = ? AND acknowledged = ?", userID, false)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := base.Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	eventIDs := make([]uint, 0, len(notifications))
	actorIDs := make([]uint, 0, len(notifications))
	for _, n := range notifications {
		eventIDs = append(eventIDs, n.EventID)
		actorIDs = append(actorIDs, n.UserWhoFiredEvent)
	}

	eventMap := make(map[uint]models.Event)
	if len(eventIDs) > 0 {
		var events []models.Event
		if err := s.db.WithContext(ctx).Find(&events, utils.UniqueUint(eventIDs)).Error; err != nil {
			return nil, 0, err
		}
		for _, e := range events {
			eventMap[e.ID] = e
		}
	}

	actorMap := make(map[uint]string)
	if len(actorIDs) > 0 {
		var actors []models.User
		if err := s.db.WithContext(ctx).Find(&actors, utils.UniqueUint(actorIDs)).Error; err != nil {
			return nil, 0, err
		}
		for _, a := range actors {
			actorMap[a.ID] = a.Username
		}
	}

	rows := make([]NotificationRow, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, NotificationRow{
			Notification: n,
			Event:        eventMap[n.EventID],
			ActorName:    actorMap[n.UserWhoFiredEvent],
		})
	}
	return rows, total, nil
}

func (s *notificationStore) Acknowledge(ctx context.Context, notificationID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Update("acknowledged", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
