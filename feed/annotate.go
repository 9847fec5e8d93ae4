package feed

import (
	"context"

	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
)

// attachPostReactions copies the viewer's reaction values onto matching
// posts. Posts without a reaction keep a nil annotation.
func attachPostReactions(posts []*models.Post, reactions []*models.Reaction) {
	if len(posts) == 0 || len(reactions) == 0 {
		return
	}
	byContent := make(map[uint]int, len(reactions))
	for _, r := range reactions {
		byContent[r.ContentID] = r.Value
	}
	for _, p := range posts {
		if v, ok := byContent[p.ID]; ok {
			value := v
			p.UserReactionValue = &value
		}
	}
}

func attachThesisReactions(theses []*models.Thesis, reactions []*models.Reaction) {
	if len(theses) == 0 || len(reactions) == 0 {
		return
	}
	byContent := make(map[uint]int, len(reactions))
	for _, r := range reactions {
		byContent[r.ContentID] = r.Value
	}
	for _, t := range theses {
		if v, ok := byContent[t.ID]; ok {
			value := v
			t.UserReactionValue = &value
		}
	}
}

// annotatePosts fetches the viewer's reactions within the time window
// spanned by the page (newest first) and attaches them. One range query per
// page instead of one lookup per item.
func (s *Service) annotatePosts(ctx context.Context, viewerID uint, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	window := &repos.TimeRange{
		Start: posts[len(posts)-1].CreatedAt,
		End:   posts[0].CreatedAt,
	}
	reactions, _, err := s.stores.Reactions().Query(ctx, repos.ReactionFilter{
		ContentKind: models.KindPost,
		UserID:      &viewerID,
		TimeRange:   window,
	}, repos.Page{})
	if err != nil {
		return err
	}
	attachPostReactions(posts, reactions)
	return nil
}

func (s *Service) annotateTheses(ctx context.Context, viewerID uint, theses []*models.Thesis) error {
	if len(theses) == 0 {
		return nil
	}
	window := &repos.TimeRange{
		Start: theses[len(theses)-1].CreatedAt,
		End:   theses[0].CreatedAt,
	}
	reactions, _, err := s.stores.Reactions().Query(ctx, repos.ReactionFilter{
		ContentKind: models.KindThesis,
		UserID:      &viewerID,
		TimeRange:   window,
	}, repos.Page{})
	if err != nil {
		return err
	}
	attachThesisReactions(theses, reactions)
	return nil
}
