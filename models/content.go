package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Sentiment is the author's directional view on an asset.
type Sentiment string

const (
	SentimentBull Sentiment = "Bull"
	SentimentBear Sentiment = "Bear"
)

// Valid reports whether s is a known sentiment value.
func (s Sentiment) Valid() bool {
	return s == SentimentBull || s == SentimentBear
}

// ContentKind distinguishes the two content tables for reactions and events.
type ContentKind string

const (
	KindPost   ContentKind = "post"
	KindThesis ContentKind = "thesis"
)

// ErrConflictingParents is returned when a post declares both a post parent
// and a thesis parent. A post is a comment on at most one of the two.
var ErrConflictingParents = errors.New("post cannot comment on both a post and a thesis")

// Post is a short-form content item. When CommentOnPostID or
// CommentOnThesisID is set the post is a threaded reply; the two links are
// mutually exclusive and a root post has neither.
type Post struct {
	ID                uint       `gorm:"primaryKey" json:"post_id"`
	UserID            uint       `gorm:"index;not null" json:"user_id"`
	Username          string     `gorm:"size:64;not null;index" json:"username"`
	ThesisID          *uint      `gorm:"index" json:"thesis_id"`
	Title             string     `gorm:"size:256" json:"title,omitempty"`
	Content           string     `gorm:"size:512;not null" json:"content"`
	AssetSymbol       string     `gorm:"size:10;index" json:"asset_symbol,omitempty"`
	Sentiment         Sentiment  `gorm:"size:8" json:"sentiment,omitempty"`
	CommentOnPostID   *uint      `gorm:"index" json:"comment_on_post_id"`
	CommentOnThesisID *uint      `gorm:"index" json:"comment_on_thesis_id"`
	CommentCount      int64      `gorm:"not null;default:0" json:"comment_count"`
	LikeCount         int64      `gorm:"not null;default:0" json:"like_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Viewer-specific annotation, populated by the feed engine.
	UserReactionValue *int `gorm:"-" json:"user_reaction_value"`
	// Resolved thread replies, populated by the feed engine.
	Replies []*Post `gorm:"-" json:"replies,omitempty"`
}

// AuthorID returns the post author's user id.
func (p *Post) AuthorID() uint { return p.UserID }

// IsComment reports whether the post is a reply to other content.
func (p *Post) IsComment() bool {
	return p.CommentOnPostID != nil || p.CommentOnThesisID != nil
}

// BeforeCreate rejects structurally invalid posts before anything is written.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.CommentOnPostID != nil && p.CommentOnThesisID != nil {
		return ErrConflictingParents
	}
	return nil
}

// Thesis is a long-form investment opinion on a single asset.
type Thesis struct {
	ID               uint      `gorm:"primaryKey" json:"thesis_id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	Username         string    `gorm:"size:64;not null;index" json:"username"`
	Title            string    `gorm:"size:256;not null" json:"title"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	Sources          string    `gorm:"type:text" json:"sources,omitempty"` // JSON array of source URLs
	AssetSymbol      string    `gorm:"size:10;not null;index" json:"asset_symbol"`
	Sentiment        Sentiment `gorm:"size:8;not null" json:"sentiment"`
	IsAuthorsCurrent bool      `gorm:"not null;default:false" json:"is_authors_current"`
	CommentCount     int64     `gorm:"not null;default:0" json:"comment_count"`
	LikeCount        int64     `gorm:"not null;default:0" json:"like_count"`
	DislikeCount     int64     `gorm:"not null;default:0" json:"dislike_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	UserReactionValue *int    `gorm:"-" json:"user_reaction_value"`
	Replies           []*Post `gorm:"-" json:"replies,omitempty"`
}

// AuthorID returns the thesis author's user id.
func (t *Thesis) AuthorID() uint { return t.UserID }
