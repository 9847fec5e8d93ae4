package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/convictionlabs/conviction/models"
)

// RationaleFilter selects rationale entries.
type RationaleFilter struct {
	RationaleID *uint
	UserID      *uint
	ThesisID    *uint
	AssetSymbol string
	Sentiment   models.Sentiment
}

// RationaleStore holds the per-user saved-thesis library. Bucket membership
// is derived from the saved thesis's (asset_symbol, sentiment).
type RationaleStore interface {
	Create(ctx context.Context, userID, thesisID uint) (*models.Rationale, error)
	Get(ctx context.Context, filter RationaleFilter) (*models.Rationale, error)
	Query(ctx context.Context, filter RationaleFilter, page Page) ([]*models.Rationale, int64, error)
	Delete(ctx context.Context, rationaleID uint) error
	// CountInBucket counts the user's entries whose saved thesis shares the
	// (asset symbol, sentiment) bucket.
	CountInBucket(ctx context.Context, userID uint, assetSymbol string, sentiment models.Sentiment) (int64, error)
	// LockBucket serializes concurrent check-then-insert sequences for one
	// user's bucket for the remainder of the surrounding transaction.
	LockBucket(ctx context.Context, userID uint, assetSymbol string, sentiment models.Sentiment) error
}

type rationaleStore struct {
	db *gorm.DB
}

func (s *rationaleStore) Create(ctx context.Context, userID, thesisID uint) (*models.Rationale, error) {
	entry := models.Rationale{UserID: userID, ThesisID: thesisID}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &entry, nil
}

func (s *rationaleStore) rationaleQuery(ctx context.Context, filter RationaleFilter) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.Rationale{})
	applied := false

	if filter.RationaleID != nil {
		q = q.Where("rationales.id = ?", *filter.RationaleID)
		applied = true
	}
	if filter.UserID != nil {
		q = q.Where("rationales.user_id = ?", *filter.UserID)
		applied = true
	}
	if filter.ThesisID != nil {
		q = q.Where("rationales.thesis_id = ?", *filter.ThesisID)
		applied = true
	}
	if filter.AssetSymbol != "" || filter.Sentiment != "" {
		q = q.Joins("JOIN theses ON theses.id = rationales.thesis_id")
		if filter.AssetSymbol != "" {
			q = q.Where("theses.asset_symbol = ?", filter.AssetSymbol)
		}
		if filter.Sentiment != "" {
			q = q.Where("theses.sentiment = ?", filter.Sentiment)
		}
		applied = true
	}
	if !applied {
		return nil, ErrEmptyFilter
	}
	return q, nil
}

func (s *rationaleStore) Get(ctx context.Context, filter RationaleFilter) (*models.Rationale, error) {
	q, err := s.rationaleQuery(ctx, filter)
	if err != nil {
		return nil, err
	}
	var entry models.Rationale
	if err := q.First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *rationaleStore) Query(ctx context.Context, filter RationaleFilter, page Page) ([]*models.Rationale, int64, error) {
	q, err := s.rationaleQuery(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	page = page.Normalize()

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*models.Rationale
	err = q.Order("rationales.created_at DESC, rationales.id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *rationaleStore) Delete(ctx context.Context, rationaleID uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Rationale{}, rationaleID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *rationaleStore) CountInBucket(ctx context.Context, userID uint, assetSymbol string, sentiment models.Sentiment) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Rationale{}).
		Joins("JOIN theses ON theses.id = rationales.thesis_id").
		Where("rationales.user_id = ? AND theses.asset_symbol = ? AND theses.sentiment = ?",
			userID, assetSymbol, sentiment).
		Count(&count).Error
	return count, err
}

func (s *rationaleStore) LockBucket(ctx context.Context, userID uint, assetSymbol string, sentiment models.Sentiment) error {
	// Postgres advisory lock keyed by the bucket; held until the enclosing
	// transaction ends. SQLite serializes writers on its own, so the lock
	// is unnecessary there.
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	key := fmt.Sprintf("rationales:%d:%s:%s", userID, assetSymbol, sentiment)
	return s.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

// isUniqueViolation matches unique-index failures across the postgres and
// sqlite drivers without importing either driver's error types here.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
