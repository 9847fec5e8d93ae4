package models

import "time"

// Block is a directed block edge from the initiating user to the receiving
// user. Storage is directional; the visibility effect is symmetric, each
// side disappears from the other's feeds.
type Block struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BlockerUserID uint      `gorm:"not null;uniqueIndex:idx_blocks_pair;index" json:"blocker_user_id"`
	BlockedUserID uint      `gorm:"not null;uniqueIndex:idx_blocks_pair;index" json:"blocked_user_id"`
	CreatedAt     time.Time `json:"created_at"`
}
