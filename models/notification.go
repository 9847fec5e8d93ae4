package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// EventType classifies the interaction an event records.
type EventType string

const (
	EventComment        EventType = "COMMENT"
	EventPostReaction   EventType = "POST_REACTION"
	EventThesisReaction EventType = "THESIS_REACTION"
)

// ErrInvalidEvent is returned when an event violates its structural rules.
// Invalid events are rejected before anything is persisted.
var ErrInvalidEvent = errors.New("invalid notification event")

// Event records a single interaction. Structural invariants: exactly one of
// AffectedPostID/AffectedThesisID is set, and CommentID is set if and only
// if the type is COMMENT.
type Event struct {
	ID               uint      `gorm:"primaryKey" json:"event_id"`
	Type             EventType `gorm:"size:16;not null" json:"type"`
	AffectedPostID   *uint     `gorm:"index" json:"affected_post_id"`
	AffectedThesisID *uint     `gorm:"index" json:"affected_thesis_id"`
	CommentID        *uint     `gorm:"index" json:"comment_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate enforces the event's structural invariants.
func (e *Event) Validate() error {
	if e.Type != EventComment && e.Type != EventPostReaction && e.Type != EventThesisReaction {
		return ErrInvalidEvent
	}
	if (e.AffectedPostID == nil) == (e.AffectedThesisID == nil) {
		return ErrInvalidEvent
	}
	if (e.Type == EventComment) != (e.CommentID != nil) {
		return ErrInvalidEvent
	}
	return nil
}

// BeforeCreate rejects invalid events so a violating record is never
// partially written.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	return e.Validate()
}

// Notification addresses an event to the user who should be told about it.
// Acknowledgment is one-way: created unacknowledged, acknowledged once,
// never un-acknowledged.
type Notification struct {
	ID                uint      `gorm:"primaryKey" json:"notification_id"`
	UserToNotify      uint      `gorm:"not null;index" json:"user_to_notify"`
	UserWhoFiredEvent uint      `gorm:"not null;index" json:"user_who_fired_event"`
	EventID           uint      `gorm:"not null;index" json:"event_id"`
	Acknowledged      bool      `gorm:"not null;default:false" json:"acknowledged"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
