package models

import "time"

// Rationale is one entry in a user's personal library of saved theses.
// A user can save a given thesis once; the library is capped per
// (asset_symbol, sentiment) bucket of the saved thesis.
type Rationale struct {
	ID        uint      `gorm:"primaryKey" json:"rationale_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rationales_user_thesis;index" json:"user_id"`
	ThesisID  uint      `gorm:"not null;uniqueIndex:idx_rationales_user_thesis;index" json:"thesis_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined thesis, populated on reads.
	Thesis *Thesis `gorm:"-" json:"thesis,omitempty"`
}
