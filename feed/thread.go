package feed

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
)

// Thread resolution depths. Feeds resolve one level of replies; detail views
// resolve three.
const (
	FeedThreadDepth   = 1
	DetailThreadDepth = 3
)

const (
	topLevelReplyPageSize = 15
	nestedReplyPageSize   = 5
)

// resolvePostThreads loads direct replies for each post and recurses until
// maxDepth levels are attached. level is the depth of the replies being
// fetched, counted from 1. Sibling subtrees load concurrently and the
// visibility filter is re-applied at every level, so blocked authors never
// surface inside a thread.
func (s *Service) resolvePostThreads(ctx context.Context, posts []*models.Post, blocks BlockData, level, maxDepth int) error {
	if level > maxDepth || len(posts) == 0 {
		return nil
	}
	pageSize := nestedReplyPageSize
	if level == 1 {
		pageSize = topLevelReplyPageSize
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, post := range posts {
		if post.CommentCount == 0 {
			continue
		}
		post := post
		g.Go(func() error {
			parentID := post.ID
			replies, _, err := s.stores.Content().QueryPosts(ctx,
				repos.PostFilter{CommentOnPostID: &parentID},
				repos.Page{Number: 1, Size: pageSize})
			if err != nil {
				return err
			}
			replies = FilterVisible(replies, blocks)
			if err := s.resolvePostThreads(ctx, replies, blocks, level+1, maxDepth); err != nil {
				return err
			}
			post.Replies = replies
			return nil
		})
	}
	return g.Wait()
}

// resolveThesisThreads attaches each thesis's top-level comments and the post
// subtrees beneath them.
func (s *Service) resolveThesisThreads(ctx context.Context, theses []*models.Thesis, blocks BlockData, maxDepth int) error {
	if maxDepth < 1 || len(theses) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, thesis := range theses {
		if thesis.CommentCount == 0 {
			continue
		}
		thesis := thesis
		g.Go(func() error {
			parentID := thesis.ID
			replies, _, err := s.stores.Content().QueryPosts(ctx,
				repos.PostFilter{CommentOnThesisID: &parentID},
				repos.Page{Number: 1, Size: topLevelReplyPageSize})
			if err != nil {
				return err
			}
			replies = FilterVisible(replies, blocks)
			if err := s.resolvePostThreads(ctx, replies, blocks, 2, maxDepth); err != nil {
				return err
			}
			thesis.Replies = replies
			return nil
		})
	}
	return g.Wait()
}
