package models

import "time"

// Reaction values. Posts accept likes only; theses accept both.
const (
	ReactionLike    = 1
	ReactionDislike = -1
)

// Reaction is a per-(content, user) like/dislike record. The composite
// unique index gives repeat reactions upsert semantics: at most one row per
// content item and user.
type Reaction struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ContentKind ContentKind `gorm:"size:8;not null;uniqueIndex:idx_reactions_content_user" json:"content_kind"`
	ContentID   uint        `gorm:"not null;uniqueIndex:idx_reactions_content_user;index" json:"content_id"`
	UserID      uint        `gorm:"not null;uniqueIndex:idx_reactions_content_user;index" json:"user_id"`
	Value       int         `gorm:"not null" json:"value"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AllowedReaction reports whether value is legal for the content kind.
func AllowedReaction(kind ContentKind, value int) bool {
	switch kind {
	case KindPost:
		return value == ReactionLike
	case KindThesis:
		return value == ReactionLike || value == ReactionDislike
	}
	return false
}
