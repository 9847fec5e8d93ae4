package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/convictionlabs/conviction/models"
)

// BlockStore is the registry of directed block edges.
type BlockStore interface {
	// Add records initiator -> target. Adding an existing edge is a no-op;
	// the ordered pair is unique in storage.
	Add(ctx context.Context, initiatorID, targetID uint) error
	Remove(ctx context.Context, initiatorID, targetID uint) error
	// ListBlocksBy returns the ids of users the given user has blocked.
	ListBlocksBy(ctx context.Context, userID uint) ([]uint, error)
	// ListBlocksOn returns the ids of users that have blocked the given user.
	ListBlocksOn(ctx context.Context, userID uint) ([]uint, error)
}

type blockStore struct {
	db *gorm.DB
}

func (s *blockStore) Add(ctx context.Context, initiatorID, targetID uint) error {
	if initiatorID == targetID {
		return errors.New("cannot block yourself")
	}
	edge := models.Block{BlockerUserID: initiatorID, BlockedUserID: targetID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error
}

func (s *blockStore) Remove(ctx context.Context, initiatorID, targetID uint) error {
	res := s.db.WithContext(ctx).
		Where("blocker_user_id = ? AND blocked_user_id = ?", initiatorID, targetID).
		Delete(&models.Block{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *blockStore) ListBlocksBy(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_user_id = ?", userID).
		Pluck("blocked_user_id", &ids).Error
	return ids, err
}

func (s *blockStore) ListBlocksOn(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_user_id = ?", userID).
		Pluck("blocker_user_id", &ids).Error
	return ids, err
}
