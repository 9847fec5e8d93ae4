package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/convictionlabs/conviction/models"
)

// TimeRange bounds a reaction query to [Start, End], inclusive. Both ends
// must be set together.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ReactionFilter selects reactions.
type ReactionFilter struct {
	ContentKind models.ContentKind
	ContentID   *uint
	UserID      *uint
	Value       *int
	TimeRange   *TimeRange
}

// ReactionStore holds per-(content, user) reaction rows with upsert
// semantics backed by a composite unique index.
type ReactionStore interface {
	// Upsert creates or updates the viewer's reaction and returns the
	// previous value, or nil when no reaction existed. Repeat reactions
	// with the same value are a no-op update, never a duplicate row.
	Upsert(ctx context.Context, kind models.ContentKind, contentID, userID uint, value int) (*int, error)
	// Delete removes the reaction and returns the removed value so callers
	// can settle aggregate counters.
	Delete(ctx context.Context, kind models.ContentKind, contentID, userID uint) (*int, error)
	Get(ctx context.Context, kind models.ContentKind, contentID, userID uint) (*models.Reaction, error)
	Query(ctx context.Context, filter ReactionFilter, page Page) ([]*models.Reaction, int64, error)
}

type reactionStore struct {
	db *gorm.DB
}

// lockReaction serializes concurrent upserts for one (content, user) pair
// for the remainder of the surrounding transaction. Without it, two first
// reactions racing past the prev-value read would both report prev == nil and
// the caller would settle the aggregate counter twice for a single row.
// SQLite serializes writers on its own.
func (s *reactionStore) lockReaction(ctx context.Context, kind models.ContentKind, contentID, userID uint) error {
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	key := fmt.Sprintf("reactions:%s:%d:%d", kind, contentID, userID)
	return s.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

func (s *reactionStore) Upsert(ctx context.Context, kind models.ContentKind, contentID, userID uint, value int) (*int, error) {
	if err := s.lockReaction(ctx, kind, contentID, userID); err != nil {
		return nil, err
	}

	var prev *int
	existing, err := s.Get(ctx, kind, contentID, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		v := existing.Value
		prev = &v
	}

	reaction := models.Reaction{
		ContentKind: kind,
		ContentID:   contentID,
		UserID:      userID,
		Value:       value,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "content_kind"}, {Name: "content_id"}, {Name: "user_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": time.Now(),
		}),
	}).Create(&reaction).Error
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func (s *reactionStore) Delete(ctx context.Context, kind models.ContentKind, contentID, userID uint) (*int, error) {
	if err := s.lockReaction(ctx, kind, contentID, userID); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, kind, contentID, userID)
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).
		Where("content_kind = ? AND content_id = ? AND user_id = ?", kind, contentID, userID).
		Delete(&models.Reaction{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	value := existing.Value
	return &value, nil
}

func (s *reactionStore) Get(ctx context.Context, kind models.ContentKind, contentID, userID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := s.db.WithContext(ctx).
		Where("content_kind = ? AND content_id = ? AND user_id = ?", kind, contentID, userID).
		First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reaction, nil
}

func (s *reactionStore) Query(ctx context.Context, filter ReactionFilter, page Page) ([]*models.Reaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Reaction{})
	applied := false

	if filter.ContentKind != "" {
		q = q.Where("content_kind = ?", filter.ContentKind)
		applied = true
	}
	if filter.ContentID != nil {
		q = q.Where("content_id = ?", *filter.ContentID)
		applied = true
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
		applied = true
	}
	if filter.Value != nil {
		q = q.Where("value = ?", *filter.Value)
		applied = true
	}
	if filter.TimeRange != nil {
		q = q.Where("created_at BETWEEN ? AND ?", filter.TimeRange.Start, filter.TimeRange.End)
		applied = true
	}
	if !applied {
		return nil, 0, ErrEmptyFilter
	}
	page = page.Normalize()

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reactions []*models.Reaction
	err := q.Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&reactions).Error
	if err != nil {
		return nil, 0, err
	}
	return reactions, total, nil
}
