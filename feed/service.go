package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/utils"
)

// ErrUnsupportedReaction is returned when the reaction value is not legal
// for the content kind, e.g. a dislike on a post.
var ErrUnsupportedReaction = errors.New("reaction value not supported for this content")

const blockCacheTTL = 10 * time.Minute

// Service is the aggregation engine. It owns visibility filtering, viewer
// annotation, thread resolution, the rationale capacity guard, and the
// notification pipeline; controllers stay thin on top of it.
type Service struct {
	stores        repos.Registry
	maxRationales int
}

// NewService wires the engine to its storage registry. maxRationales <= 0
// falls back to the default per-bucket cap.
func NewService(stores repos.Registry, maxRationales int) *Service {
	if maxRationales <= 0 {
		maxRationales = DefaultMaxRationales
	}
	return &Service{stores: stores, maxRationales: maxRationales}
}

// Stores exposes the underlying registry for callers that need plain CRUD
// without engine semantics.
func (s *Service) Stores() repos.Registry { return s.stores }

type blockCacheEntry struct {
	Blocks    []uint `json:"blocks"`
	BlockedBy []uint `json:"blocked_by"`
}

func blockCacheKey(userID uint) string {
	return fmt.Sprintf("cache:user:%d:blocks", userID)
}

// BlockDataFor loads both directions of the viewer's block relations,
// read-through cached in Redis. Cache failures fall back to the database.
func (s *Service) BlockDataFor(ctx context.Context, viewerID uint) (BlockData, error) {
	key := blockCacheKey(viewerID)
	if b, ok := utils.CacheGetBytes(key); ok {
		var entry blockCacheEntry
		if err := json.Unmarshal(b, &entry); err == nil {
			return NewBlockData(entry.Blocks, entry.BlockedBy), nil
		}
	}

	blocks, err := s.stores.Blocks().ListBlocksBy(ctx, viewerID)
	if err != nil {
		return BlockData{}, err
	}
	blockedBy, err := s.stores.Blocks().ListBlocksOn(ctx, viewerID)
	if err != nil {
		return BlockData{}, err
	}

	utils.CacheSetJSON(key, blockCacheEntry{Blocks: blocks, BlockedBy: blockedBy}, blockCacheTTL)
	return NewBlockData(blocks, blockedBy), nil
}

// Block records a block edge from initiator to target and drops both users'
// cached block data.
func (s *Service) Block(ctx context.Context, initiatorID, targetID uint) error {
	if err := s.stores.Blocks().Add(ctx, initiatorID, targetID); err != nil {
		return err
	}
	utils.InvalidateByPrefix(blockCacheKey(initiatorID))
	utils.InvalidateByPrefix(blockCacheKey(targetID))
	return nil
}

// Unblock removes the edge. Removing a non-existent edge returns
// repos.ErrNotFound.
func (s *Service) Unblock(ctx context.Context, initiatorID, targetID uint) error {
	if err := s.stores.Blocks().Remove(ctx, initiatorID, targetID); err != nil {
		return err
	}
	utils.InvalidateByPrefix(blockCacheKey(initiatorID))
	utils.InvalidateByPrefix(blockCacheKey(targetID))
	return nil
}

// PostFeed assembles a page of posts for the viewer: query, block filter,
// reaction annotation, one level of replies.
func (s *Service) PostFeed(ctx context.Context, viewerID uint, filter repos.PostFilter, page repos.Page) ([]*models.Post, int64, error) {
	blocks, err := s.BlockDataFor(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}
	if !filter.RootsOnly && filter.PostID == nil && filter.UserID == nil &&
		filter.ThesisID == nil && filter.AssetSymbol == "" && filter.Sentiment == "" &&
		filter.CommentOnPostID == nil && filter.CommentOnThesisID == nil && len(filter.IDs) == 0 {
		filter.RootsOnly = true
	}
	posts, total, err := s.stores.Content().QueryPosts(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	posts = FilterVisible(posts, blocks)
	if err := s.annotatePosts(ctx, viewerID, posts); err != nil {
		return nil, 0, err
	}
	if err := s.resolvePostThreads(ctx, posts, blocks, 1, FeedThreadDepth); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ThesisFeed assembles a page of theses for the viewer.
func (s *Service) ThesisFeed(ctx context.Context, viewerID uint, filter repos.ThesisFilter, page repos.Page) ([]*models.Thesis, int64, error) {
	blocks, err := s.BlockDataFor(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}
	theses, total, err := s.stores.Content().QueryTheses(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	theses = FilterVisible(theses, blocks)
	if err := s.annotateTheses(ctx, viewerID, theses); err != nil {
		return nil, 0, err
	}
	if err := s.resolveThesisThreads(ctx, theses, blocks, FeedThreadDepth); err != nil {
		return nil, 0, err
	}
	return theses, total, nil
}

// GetPostDetail returns one post with a deep thread. A post whose author sits
// on either side of a block edge with the viewer yields repos.ErrForbidden,
// distinct from repos.ErrNotFound.
func (s *Service) GetPostDetail(ctx context.Context, viewerID, postID uint) (*models.Post, error) {
	blocks, err := s.BlockDataFor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	post, err := s.stores.Content().GetPost(ctx, repos.PostFilter{PostID: &postID})
	if err != nil {
		return nil, err
	}
	if blocks.Hidden(post.UserID) {
		return nil, repos.ErrForbidden
	}
	if err := s.annotatePost(ctx, viewerID, post); err != nil {
		return nil, err
	}
	if err := s.resolvePostThreads(ctx, []*models.Post{post}, blocks, 1, DetailThreadDepth); err != nil {
		return nil, err
	}
	return post, nil
}

// GetThesisDetail returns one thesis with a deep thread, under the same
// visibility rules as GetPostDetail.
func (s *Service) GetThesisDetail(ctx context.Context, viewerID, thesisID uint) (*models.Thesis, error) {
	blocks, err := s.BlockDataFor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	thesis, err := s.stores.Content().GetThesis(ctx, repos.ThesisFilter{ThesisID: &thesisID})
	if err != nil {
		return nil, err
	}
	if blocks.Hidden(thesis.UserID) {
		return nil, repos.ErrForbidden
	}
	if err := s.annotateThesis(ctx, viewerID, thesis); err != nil {
		return nil, err
	}
	if err := s.resolveThesisThreads(ctx, []*models.Thesis{thesis}, blocks, DetailThreadDepth); err != nil {
		return nil, err
	}
	return thesis, nil
}

func (s *Service) annotatePost(ctx context.Context, viewerID uint, post *models.Post) error {
	reaction, err := s.stores.Reactions().Get(ctx, models.KindPost, post.ID, viewerID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil
		}
		return err
	}
	value := reaction.Value
	post.UserReactionValue = &value
	return nil
}

func (s *Service) annotateThesis(ctx context.Context, viewerID uint, thesis *models.Thesis) error {
	reaction, err := s.stores.Reactions().Get(ctx, models.KindThesis, thesis.ID, viewerID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil
		}
		return err
	}
	value := reaction.Value
	thesis.UserReactionValue = &value
	return nil
}

// CreatePost persists a post. When the post is a comment the parent's reply
// counter moves and, for someone else's content, a COMMENT event fires; all
// of it commits or rolls back together.
func (s *Service) CreatePost(ctx context.Context, post *models.Post) error {
	if post.CommentOnPostID != nil && post.CommentOnThesisID != nil {
		return models.ErrConflictingParents
	}

	var (
		parentKind   models.ContentKind
		parentID     uint
		parentAuthor uint
	)
	if post.CommentOnPostID != nil {
		parent, err := s.stores.Content().GetPost(ctx, repos.PostFilter{PostID: post.CommentOnPostID})
		if err != nil {
			return err
		}
		parentKind, parentID, parentAuthor = models.KindPost, parent.ID, parent.UserID
	} else if post.CommentOnThesisID != nil {
		parent, err := s.stores.Content().GetThesis(ctx, repos.ThesisFilter{ThesisID: post.CommentOnThesisID})
		if err != nil {
			return err
		}
		parentKind, parentID, parentAuthor = models.KindThesis, parent.ID, parent.UserID
	}

	if parentID != 0 {
		blocks, err := s.BlockDataFor(ctx, post.UserID)
		if err != nil {
			return err
		}
		if blocks.Hidden(parentAuthor) {
			return repos.ErrForbidden
		}
	}

	return s.stores.Transaction(ctx, func(tx repos.Registry) error {
		if err := tx.Content().CreatePost(ctx, post); err != nil {
			return err
		}
		if parentID == 0 {
			return nil
		}
		if err := tx.Content().AdjustCommentCount(ctx, parentKind, parentID, 1); err != nil {
			return err
		}
		if parentAuthor == post.UserID {
			return nil
		}
		commentID := post.ID
		event := models.Event{Type: models.EventComment, CommentID: &commentID}
		if parentKind == models.KindPost {
			event.AffectedPostID = &parentID
		} else {
			event.AffectedThesisID = &parentID
		}
		return tx.Notifications().CreateEvent(ctx, &event, parentAuthor, post.UserID)
	})
}

// DeletePost removes the actor's own post and settles the parent's reply
// counter. A parent deleted in the meantime is tolerated.
func (s *Service) DeletePost(ctx context.Context, actorID, postID uint) error {
	post, err := s.stores.Content().GetPost(ctx, repos.PostFilter{PostID: &postID})
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return repos.ErrForbidden
	}
	return s.stores.Transaction(ctx, func(tx repos.Registry) error {
		if err := tx.Content().DeletePost(ctx, postID); err != nil {
			return err
		}
		var adjErr error
		switch {
		case post.CommentOnPostID != nil:
			adjErr = tx.Content().AdjustCommentCount(ctx, models.KindPost, *post.CommentOnPostID, -1)
		case post.CommentOnThesisID != nil:
			adjErr = tx.Content().AdjustCommentCount(ctx, models.KindThesis, *post.CommentOnThesisID, -1)
		}
		if adjErr != nil && !errors.Is(adjErr, repos.ErrNotFound) {
			return adjErr
		}
		return nil
	})
}

// React records or replaces the viewer's reaction. The reaction row, the
// aggregate counters and the notification event move in one transaction. A
// repeat reaction with the same value changes nothing and fires no event.
func (s *Service) React(ctx context.Context, viewerID uint, kind models.ContentKind, contentID uint, value int) error {
	if !models.AllowedReaction(kind, value) {
		return ErrUnsupportedReaction
	}

	var author uint
	switch kind {
	case models.KindPost:
		post, err := s.stores.Content().GetPost(ctx, repos.PostFilter{PostID: &contentID})
		if err != nil {
			return err
		}
		author = post.UserID
	case models.KindThesis:
		thesis, err := s.stores.Content().GetThesis(ctx, repos.ThesisFilter{ThesisID: &contentID})
		if err != nil {
			return err
		}
		author = thesis.UserID
	default:
		return ErrUnsupportedReaction
	}

	blocks, err := s.BlockDataFor(ctx, viewerID)
	if err != nil {
		return err
	}
	if blocks.Hidden(author) {
		return repos.ErrForbidden
	}

	return s.stores.Transaction(ctx, func(tx repos.Registry) error {
		prev, err := tx.Reactions().Upsert(ctx, kind, contentID, viewerID, value)
		if err != nil {
			return err
		}
		if prev != nil && *prev == value {
			return nil
		}
		if prev != nil {
			if err := tx.Content().AdjustReactionCount(ctx, kind, contentID, *prev, -1); err != nil {
				return err
			}
		}
		if err := tx.Content().AdjustReactionCount(ctx, kind, contentID, value, 1); err != nil {
			return err
		}
		if prev != nil || author == viewerID {
			return nil
		}
		event := models.Event{}
		if kind == models.KindPost {
			event.Type = models.EventPostReaction
			event.AffectedPostID = &contentID
		} else {
			event.Type = models.EventThesisReaction
			event.AffectedThesisID = &contentID
		}
		return tx.Notifications().CreateEvent(ctx, &event, author, viewerID)
	})
}

// Unreact removes the viewer's reaction and settles the counter. No reaction
// to remove yields repos.ErrNotFound.
func (s *Service) Unreact(ctx context.Context, viewerID uint, kind models.ContentKind, contentID uint) error {
	return s.stores.Transaction(ctx, func(tx repos.Registry) error {
		removed, err := tx.Reactions().Delete(ctx, kind, contentID, viewerID)
		if err != nil {
			return err
		}
		err = tx.Content().AdjustReactionCount(ctx, kind, contentID, *removed, -1)
		if err != nil && !errors.Is(err, repos.ErrNotFound) {
			return err
		}
		return nil
	})
}

// SaveRationale adds a thesis to the viewer's library, enforcing the
// per-(asset, sentiment) bucket cap atomically. A full bucket yields a
// *CapacityError; saving the same thesis twice yields repos.ErrDuplicate.
func (s *Service) SaveRationale(ctx context.Context, userID, thesisID uint) (*models.Rationale, error) {
	thesis, err := s.stores.Content().GetThesis(ctx, repos.ThesisFilter{ThesisID: &thesisID})
	if err != nil {
		return nil, err
	}

	blocks, err := s.BlockDataFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if blocks.Hidden(thesis.UserID) {
		return nil, repos.ErrForbidden
	}

	var entry *models.Rationale
	err = s.stores.Transaction(ctx, func(tx repos.Registry) error {
		if err := tx.Rationales().LockBucket(ctx, userID, thesis.AssetSymbol, thesis.Sentiment); err != nil {
			return err
		}
		count, err := tx.Rationales().CountInBucket(ctx, userID, thesis.AssetSymbol, thesis.Sentiment)
		if err != nil {
			return err
		}
		if err := CheckRationaleCapacity(count, s.maxRationales, thesis); err != nil {
			return err
		}
		entry, err = tx.Rationales().Create(ctx, userID, thesisID)
		return err
	})
	if err != nil {
		return nil, err
	}
	entry.Thesis = thesis
	return entry, nil
}

// RationaleLibrary lists rationale entries with their saved theses joined
// and annotated for the viewer.
func (s *Service) RationaleLibrary(ctx context.Context, viewerID uint, filter repos.RationaleFilter, page repos.Page) ([]*models.Rationale, int64, error) {
	entries, total, err := s.stores.Rationales().Query(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return entries, total, nil
	}

	thesisIDs := make([]uint, 0, len(entries))
	for _, e := range entries {
		thesisIDs = append(thesisIDs, e.ThesisID)
	}
	theses, _, err := s.stores.Content().QueryTheses(ctx,
		repos.ThesisFilter{IDs: utils.UniqueUint(thesisIDs)},
		repos.Page{Number: 1, Size: len(entries)})
	if err != nil {
		return nil, 0, err
	}
	if err := s.annotateTheses(ctx, viewerID, theses); err != nil {
		return nil, 0, err
	}
	byID := make(map[uint]*models.Thesis, len(theses))
	for _, t := range theses {
		byID[t.ID] = t
	}
	for _, e := range entries {
		e.Thesis = byID[e.ThesisID]
	}
	return entries, total, nil
}

// DeleteRationale removes the viewer's own library entry.
func (s *Service) DeleteRationale(ctx context.Context, userID, rationaleID uint) error {
	entry, err := s.stores.Rationales().Get(ctx, repos.RationaleFilter{RationaleID: &rationaleID})
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return repos.ErrForbidden
	}
	return s.stores.Rationales().Delete(ctx, rationaleID)
}
