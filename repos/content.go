package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/convictionlabs/conviction/models"
)

// PostFilter selects posts. Nil/zero fields are ignored; querying with an
// entirely empty filter is rejected unless RootsOnly is set.
type PostFilter struct {
	PostID            *uint
	UserID            *uint
	ThesisID          *uint
	AssetSymbol       string
	Sentiment         models.Sentiment
	CommentOnPostID   *uint
	CommentOnThesisID *uint
	IDs               []uint
	// RootsOnly restricts results to posts that are not comments.
	RootsOnly bool
}

// ThesisFilter selects theses.
type ThesisFilter struct {
	ThesisID    *uint
	UserID      *uint
	AssetSymbol string
	Sentiment   models.Sentiment
	IDs         []uint
}

// ContentStore is the durable home of posts and theses, including thread
// linkage and the denormalized aggregate counters the feed engine reads.
type ContentStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, filter PostFilter) (*models.Post, error)
	QueryPosts(ctx context.Context, filter PostFilter, page Page) ([]*models.Post, int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, postID uint) error

	CreateThesis(ctx context.Context, thesis *models.Thesis) error
	GetThesis(ctx context.Context, filter ThesisFilter) (*models.Thesis, error)
	QueryTheses(ctx context.Context, filter ThesisFilter, page Page) ([]*models.Thesis, int64, error)
	UpdateThesis(ctx context.Context, thesis *models.Thesis) error
	DeleteThesis(ctx context.Context, thesisID uint) error
	// SetAuthorsCurrent marks one thesis as the author's current view on an
	// asset and clears the flag on the author's other theses for it.
	SetAuthorsCurrent(ctx context.Context, userID uint, assetSymbol string, thesisID uint) error

	// AdjustCommentCount moves an item's denormalized reply counter.
	AdjustCommentCount(ctx context.Context, kind models.ContentKind, contentID uint, delta int) error
	// AdjustReactionCount moves the like (value > 0) or dislike (value < 0)
	// counter of an item by delta.
	AdjustReactionCount(ctx context.Context, kind models.ContentKind, contentID uint, value, delta int) error
}

type contentStore struct {
	db *gorm.DB
}

func (s *contentStore) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *contentStore) postQuery(ctx context.Context, filter PostFilter) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.Post{})
	applied := false

	if filter.PostID != nil {
		q = q.Where("id = ?", *filter.PostID)
		applied = true
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
		applied = true
	}
	if filter.ThesisID != nil {
		q = q.Where("thesis_id = ?", *filter.ThesisID)
		applied = true
	}
	if filter.AssetSymbol != "" {
		q = q.Where("asset_symbol = ?", filter.AssetSymbol)
		applied = true
	}
	if filter.Sentiment != "" {
		q = q.Where("sentiment = ?", filter.Sentiment)
		applied = true
	}
	if filter.CommentOnPostID != nil {
		q = q.Where("comment_on_post_id = ?", *filter.CommentOnPostID)
		applied = true
	}
	if filter.CommentOnThesisID != nil {
		q = q.Where("comment_on_thesis_id = ?", *filter.CommentOnThesisID)
		applied = true
	}
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
		applied = true
	}
	if filter.RootsOnly {
		q = q.Where("comment_on_post_id IS NULL AND comment_on_thesis_id IS NULL")
		applied = true
	}
	if !applied {
		return nil, ErrEmptyFilter
	}
	return q, nil
}

func (s *contentStore) GetPost(ctx context.Context, filter PostFilter) (*models.Post, error) {
	q, err := s.postQuery(ctx, filter)
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := q.First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *contentStore) QueryPosts(ctx context.Context, filter PostFilter, page Page) ([]*models.Post, int64, error) {
	q, err := s.postQuery(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	page = page.Normalize()

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	err = q.Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *contentStore) UpdatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Save(post).Error
}

func (s *contentStore) DeletePost(ctx context.Context, postID uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, postID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *contentStore) CreateThesis(ctx context.Context, thesis *models.Thesis) error {
	return s.db.WithContext(ctx).Create(thesis).Error
}

func (s *contentStore) thesisQuery(ctx context.Context, filter ThesisFilter) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.Thesis{})
	applied := false

	if filter.ThesisID != nil {
		q = q.Where("id = ?", *filter.ThesisID)
		applied = true
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
		applied = true
	}
	if filter.AssetSymbol != "" {
		q = q.Where("asset_symbol = ?", filter.AssetSymbol)
		applied = true
	}
	if filter.Sentiment != "" {
		q = q.Where("sentiment = ?", filter.Sentiment)
		applied = true
	}
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
		applied = true
	}
	if !applied {
		return nil, ErrEmptyFilter
	}
	return q, nil
}

func (s *contentStore) GetThesis(ctx context.Context, filter ThesisFilter) (*models.Thesis, error) {
	q, err := s.thesisQuery(ctx, filter)
	if err != nil {
		return nil, err
	}
	var thesis models.Thesis
	if err := q.First(&thesis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &thesis, nil
}

func (s *contentStore) QueryTheses(ctx context.Context, filter ThesisFilter, page Page) ([]*models.Thesis, int64, error) {
	q, err := s.thesisQuery(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	page = page.Normalize()

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var theses []*models.Thesis
	err = q.Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&theses).Error
	if err != nil {
		return nil, 0, err
	}
	return theses, total, nil
}

func (s *contentStore) UpdateThesis(ctx context.Context, thesis *models.Thesis) error {
	return s.db.WithContext(ctx).Save(thesis).Error
}

func (s *contentStore) DeleteThesis(ctx context.Context, thesisID uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Thesis{}, thesisID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *contentStore) SetAuthorsCurrent(ctx context.Context, userID uint, assetSymbol string, thesisID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Thesis{}).
		Where("user_id = ? AND asset_symbol = ? AND id <> ?", userID, assetSymbol, thesisID).
		UpdateColumn("is_authors_current", false).Error
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Thesis{}).
		Where("id = ?", thesisID).
		UpdateColumn("is_authors_current", true).Error
}

func (s *contentStore) AdjustCommentCount(ctx context.Context, kind models.ContentKind, contentID uint, delta int) error {
	return s.adjust(ctx, kind, contentID, "comment_count", delta)
}

func (s *contentStore) AdjustReactionCount(ctx context.Context, kind models.ContentKind, contentID uint, value, delta int) error {
	column := "like_count"
	if value < 0 {
		if kind != models.KindThesis {
			return errors.New("dislike counter only exists for theses")
		}
		column = "dislike_count"
	}
	return s.adjust(ctx, kind, contentID, column, delta)
}

func (s *contentStore) adjust(ctx context.Context, kind models.ContentKind, contentID uint, column string, delta int) error {
	var target interface{}
	switch kind {
	case models.KindPost:
		target = &models.Post{}
	case models.KindThesis:
		target = &models.Thesis{}
	default:
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Model(target).
		Where("id = ?", contentID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
