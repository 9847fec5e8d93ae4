package feed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
)

func TestMain(m *testing.M) {
	// Config loading requires a JWT secret even though these tests never
	// issue tokens.
	os.Setenv("JWT_SECRET", "test-secret")
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T, maxRationales int) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// One pooled connection keeps every caller on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Thesis{},
		&models.Reaction{},
		&models.Block{},
		&models.Rationale{},
		&models.Event{},
		&models.Notification{},
	))
	return NewService(repos.New(db), maxRationales), db
}

func mustUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func mustThesis(t *testing.T, db *gorm.DB, user *models.User, asset string, sentiment models.Sentiment) *models.Thesis {
	t.Helper()
	thesis := &models.Thesis{
		UserID:      user.ID,
		Username:    user.Username,
		Title:       asset + " view",
		Content:     "body",
		AssetSymbol: asset,
		Sentiment:   sentiment,
	}
	require.NoError(t, db.Create(thesis).Error)
	return thesis
}

func mustPost(t *testing.T, db *gorm.DB, user *models.User, content string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:    user.ID,
		Username:  user.Username,
		Content:   content,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestReactUpdatesCountersAndNotifies(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	thesis := mustThesis(t, db, alice, "TSLA", models.SentimentBull)

	require.NoError(t, engine.React(ctx, bob.ID, models.KindThesis, thesis.ID, models.ReactionLike))

	var stored models.Thesis
	require.NoError(t, db.First(&stored, thesis.ID).Error)
	assert.Equal(t, int64(1), stored.LikeCount)
	assert.Equal(t, int64(0), stored.DislikeCount)

	views, total, err := engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
	assert.Equal(t, models.EventThesisReaction, views[0].Type)
	assert.Equal(t, "bob", views[0].ActorName)
	require.NotNil(t, views[0].Thesis)
	assert.Equal(t, thesis.ID, views[0].Thesis.ID)

	// Repeating the same reaction changes nothing and fires no new event.
	require.NoError(t, engine.React(ctx, bob.ID, models.KindThesis, thesis.ID, models.ReactionLike))
	require.NoError(t, db.First(&stored, thesis.ID).Error)
	assert.Equal(t, int64(1), stored.LikeCount)
	_, total, err = engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// Flipping moves both counters without a second notification.
	require.NoError(t, engine.React(ctx, bob.ID, models.KindThesis, thesis.ID, models.ReactionDislike))
	require.NoError(t, db.First(&stored, thesis.ID).Error)
	assert.Equal(t, int64(0), stored.LikeCount)
	assert.Equal(t, int64(1), stored.DislikeCount)
	_, total, err = engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestReactToOwnContentFiresNoNotification(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	thesis := mustThesis(t, db, alice, "TSLA", models.SentimentBull)

	require.NoError(t, engine.React(ctx, alice.ID, models.KindThesis, thesis.ID, models.ReactionLike))

	_, total, err := engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestReactValueRules(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	post := mustPost(t, db, alice, "hello", time.Now())

	// Posts accept likes only.
	err := engine.React(ctx, bob.ID, models.KindPost, post.ID, models.ReactionDislike)
	assert.ErrorIs(t, err, ErrUnsupportedReaction)
	err = engine.React(ctx, bob.ID, models.KindPost, post.ID, 5)
	assert.ErrorIs(t, err, ErrUnsupportedReaction)

	require.NoError(t, engine.React(ctx, bob.ID, models.KindPost, post.ID, models.ReactionLike))
	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, int64(1), stored.LikeCount)
}

func TestConcurrentFirstReactionsSettleOnce(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	thesis := mustThesis(t, db, alice, "TSLA", models.SentimentBull)

	// Two racing reactions with the same value must settle the counter once
	// and fire a single event.
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			return engine.React(ctx, bob.ID, models.KindThesis, thesis.ID, models.ReactionLike)
		})
	}
	require.NoError(t, g.Wait())

	var stored models.Thesis
	require.NoError(t, db.First(&stored, thesis.ID).Error)
	assert.Equal(t, int64(1), stored.LikeCount)

	var rows int64
	require.NoError(t, db.Model(&models.Reaction{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	_, total, err := engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestUnreactSettlesCounter(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	thesis := mustThesis(t, db, alice, "TSLA", models.SentimentBull)

	require.NoError(t, engine.React(ctx, bob.ID, models.KindThesis, thesis.ID, models.ReactionLike))
	require.NoError(t, engine.Unreact(ctx, bob.ID, models.KindThesis, thesis.ID))

	var stored models.Thesis
	require.NoError(t, db.First(&stored, thesis.ID).Error)
	assert.Equal(t, int64(0), stored.LikeCount)

	assert.ErrorIs(t, engine.Unreact(ctx, bob.ID, models.KindThesis, thesis.ID), repos.ErrNotFound)
}

func TestPostFeedAnnotatesViewerReactions(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	// Spread the page across a window that contains the reaction time.
	old := mustPost(t, db, alice, "old", time.Now().Add(-2*time.Hour))
	liked := mustPost(t, db, alice, "liked", time.Now().Add(-time.Hour))
	newest := mustPost(t, db, alice, "newest", time.Now().Add(time.Hour))

	require.NoError(t, engine.React(ctx, bob.ID, models.KindPost, liked.ID, models.ReactionLike))

	posts, total, err := engine.PostFeed(ctx, bob.ID, repos.PostFilter{}, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, posts, 3)

	byID := make(map[uint]*models.Post)
	for _, p := range posts {
		byID[p.ID] = p
	}
	require.NotNil(t, byID[liked.ID].UserReactionValue)
	assert.Equal(t, models.ReactionLike, *byID[liked.ID].UserReactionValue)
	assert.Nil(t, byID[old.ID].UserReactionValue)
	assert.Nil(t, byID[newest.ID].UserReactionValue)

	// Newest first.
	assert.Equal(t, newest.ID, posts[0].ID)
}

func TestThesisDetailAnnotationIsPerViewer(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	thesis := mustThesis(t, db, alice, "BTC", models.SentimentBull)

	require.NoError(t, engine.React(ctx, bob.ID, models.KindThesis, thesis.ID, models.ReactionLike))

	// The author sees the aggregate count but no reaction of their own.
	asAlice, err := engine.GetThesisDetail(ctx, alice.ID, thesis.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), asAlice.LikeCount)
	assert.Nil(t, asAlice.UserReactionValue)

	asBob, err := engine.GetThesisDetail(ctx, bob.ID, thesis.ID)
	require.NoError(t, err)
	require.NotNil(t, asBob.UserReactionValue)
	assert.Equal(t, models.ReactionLike, *asBob.UserReactionValue)
}

func TestBlockHidesContentBothDirections(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	carol := mustUser(t, db, "carol")

	alicePost := mustPost(t, db, alice, "from alice", time.Now())
	bobPost := mustPost(t, db, bob, "from bob", time.Now())
	carolPost := mustPost(t, db, carol, "from carol", time.Now())

	require.NoError(t, engine.Block(ctx, alice.ID, bob.ID))

	// The initiator no longer sees the target.
	posts, _, err := engine.PostFeed(ctx, alice.ID, repos.PostFilter{}, repos.Page{})
	require.NoError(t, err)
	ids := postIDs(posts)
	assert.Contains(t, ids, alicePost.ID)
	assert.Contains(t, ids, carolPost.ID)
	assert.NotContains(t, ids, bobPost.ID)

	// The effect is symmetric for the target.
	posts, _, err = engine.PostFeed(ctx, bob.ID, repos.PostFilter{}, repos.Page{})
	require.NoError(t, err)
	ids = postIDs(posts)
	assert.NotContains(t, ids, alicePost.ID)
	assert.Contains(t, ids, bobPost.ID)

	// Single-item fetch distinguishes blocked from missing.
	_, err = engine.GetPostDetail(ctx, alice.ID, bobPost.ID)
	assert.ErrorIs(t, err, repos.ErrForbidden)
	_, err = engine.GetPostDetail(ctx, bob.ID, alicePost.ID)
	assert.ErrorIs(t, err, repos.ErrForbidden)
	_, err = engine.GetPostDetail(ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, repos.ErrNotFound)

	// Unblocking restores visibility.
	require.NoError(t, engine.Unblock(ctx, alice.ID, bob.ID))
	posts, _, err = engine.PostFeed(ctx, alice.ID, repos.PostFilter{}, repos.Page{})
	require.NoError(t, err)
	assert.Contains(t, postIDs(posts), bobPost.ID)
}

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestCreateCommentBumpsCounterAndNotifies(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	root := mustPost(t, db, alice, "root", time.Now())

	comment := &models.Post{
		UserID:          bob.ID,
		Username:        bob.Username,
		Content:         "reply",
		CommentOnPostID: &root.ID,
	}
	require.NoError(t, engine.CreatePost(ctx, comment))

	var stored models.Post
	require.NoError(t, db.First(&stored, root.ID).Error)
	assert.Equal(t, int64(1), stored.CommentCount)

	views, total, err := engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
	assert.Equal(t, models.EventComment, views[0].Type)
	require.NotNil(t, views[0].Comment)
	assert.Equal(t, comment.ID, views[0].Comment.ID)
	require.NotNil(t, views[0].Post)
	assert.Equal(t, root.ID, views[0].Post.ID)

	// Commenting on one's own content fires no notification.
	own := &models.Post{
		UserID:          alice.ID,
		Username:        alice.Username,
		Content:         "self reply",
		CommentOnPostID: &root.ID,
	}
	require.NoError(t, engine.CreatePost(ctx, own))
	_, total, err = engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCreatePostRejectsTwoParents(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	root := mustPost(t, db, alice, "root", time.Now())
	thesis := mustThesis(t, db, alice, "TSLA", models.SentimentBull)

	bad := &models.Post{
		UserID:            alice.ID,
		Username:          alice.Username,
		Content:           "reply",
		CommentOnPostID:   &root.ID,
		CommentOnThesisID: &thesis.ID,
	}
	assert.ErrorIs(t, engine.CreatePost(ctx, bad), models.ErrConflictingParents)
}

func TestThreadResolutionDepthIsBounded(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	root := mustPost(t, db, alice, "root", time.Now())

	// Build a reply chain four levels deep under the root.
	parentID := root.ID
	var chain []uint
	for i := 0; i < 4; i++ {
		id := parentID
		reply := &models.Post{
			UserID:          alice.ID,
			Username:        alice.Username,
			Content:         "reply",
			CommentOnPostID: &id,
		}
		require.NoError(t, engine.CreatePost(ctx, reply))
		chain = append(chain, reply.ID)
		parentID = reply.ID
	}

	detail, err := engine.GetPostDetail(ctx, alice.ID, root.ID)
	require.NoError(t, err)

	// Detail resolves exactly three levels.
	require.Len(t, detail.Replies, 1)
	level1 := detail.Replies[0]
	assert.Equal(t, chain[0], level1.ID)
	require.Len(t, level1.Replies, 1)
	level2 := level1.Replies[0]
	assert.Equal(t, chain[1], level2.ID)
	require.Len(t, level2.Replies, 1)
	level3 := level2.Replies[0]
	assert.Equal(t, chain[2], level3.ID)
	assert.Empty(t, level3.Replies)

	// Feed context resolves one level only.
	posts, _, err := engine.PostFeed(ctx, alice.ID, repos.PostFilter{}, repos.Page{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Len(t, posts[0].Replies, 1)
	assert.Empty(t, posts[0].Replies[0].Replies)
}

func TestThreadResolutionFiltersBlockedAuthors(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	carol := mustUser(t, db, "carol")
	root := mustPost(t, db, alice, "root", time.Now())

	for _, author := range []*models.User{bob, carol} {
		reply := &models.Post{
			UserID:          author.ID,
			Username:        author.Username,
			Content:         "reply",
			CommentOnPostID: &root.ID,
		}
		require.NoError(t, engine.CreatePost(ctx, reply))
	}

	require.NoError(t, engine.Block(ctx, alice.ID, bob.ID))

	detail, err := engine.GetPostDetail(ctx, alice.ID, root.ID)
	require.NoError(t, err)
	require.Len(t, detail.Replies, 1)
	assert.Equal(t, carol.ID, detail.Replies[0].UserID)
}

func TestSaveRationaleEnforcesBucketCap(t *testing.T) {
	engine, db := newTestEngine(t, 2)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	first := mustThesis(t, db, bob, "TSLA", models.SentimentBull)
	second := mustThesis(t, db, bob, "TSLA", models.SentimentBull)
	third := mustThesis(t, db, bob, "TSLA", models.SentimentBull)
	otherBucket := mustThesis(t, db, bob, "TSLA", models.SentimentBear)

	entry, err := engine.SaveRationale(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, entry.Thesis)
	assert.Equal(t, first.ID, entry.Thesis.ID)

	_, err = engine.SaveRationale(ctx, alice.ID, second.ID)
	require.NoError(t, err)

	// The bucket is full.
	_, err = engine.SaveRationale(ctx, alice.ID, third.ID)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "TSLA", capErr.AssetSymbol)
	assert.Equal(t, models.SentimentBull, capErr.Sentiment)
	assert.Equal(t, 2, capErr.Limit)

	// A different sentiment is a different bucket.
	_, err = engine.SaveRationale(ctx, alice.ID, otherBucket.ID)
	require.NoError(t, err)

	// Saving the same thesis twice is a conflict, not a capacity problem.
	_, err = engine.SaveRationale(ctx, alice.ID, otherBucket.ID)
	assert.ErrorIs(t, err, repos.ErrDuplicate)

	// Removing an entry frees a slot.
	require.NoError(t, engine.DeleteRationale(ctx, alice.ID, entry.ID))
	_, err = engine.SaveRationale(ctx, alice.ID, third.ID)
	require.NoError(t, err)
}

func TestRationaleLibraryJoinsTheses(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	// The page must span a window that contains the reaction time.
	older := &models.Thesis{
		UserID:      bob.ID,
		Username:    bob.Username,
		Title:       "TSLA view",
		Content:     "body",
		AssetSymbol: "TSLA",
		Sentiment:   models.SentimentBull,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(older).Error)
	newer := &models.Thesis{
		UserID:      bob.ID,
		Username:    bob.Username,
		Title:       "TSLA counterview",
		Content:     "body",
		AssetSymbol: "TSLA",
		Sentiment:   models.SentimentBear,
		CreatedAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(newer).Error)

	_, err := engine.SaveRationale(ctx, alice.ID, older.ID)
	require.NoError(t, err)
	_, err = engine.SaveRationale(ctx, alice.ID, newer.ID)
	require.NoError(t, err)
	require.NoError(t, engine.React(ctx, alice.ID, models.KindThesis, older.ID, models.ReactionLike))

	userID := alice.ID
	entries, total, err := engine.RationaleLibrary(ctx, alice.ID, repos.RationaleFilter{UserID: &userID}, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)

	byThesis := make(map[uint]*models.Rationale)
	for _, e := range entries {
		require.NotNil(t, e.Thesis)
		byThesis[e.ThesisID] = e
	}
	require.NotNil(t, byThesis[older.ID].Thesis.UserReactionValue)
	assert.Equal(t, models.ReactionLike, *byThesis[older.ID].Thesis.UserReactionValue)
	assert.Nil(t, byThesis[newer.ID].Thesis.UserReactionValue)
}

func TestAcknowledgeNotification(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	thesis := mustThesis(t, db, alice, "TSLA", models.SentimentBull)

	require.NoError(t, engine.React(ctx, bob.ID, models.KindThesis, thesis.ID, models.ReactionLike))

	views, _, err := engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	notificationID := views[0].NotificationID

	// Only the addressee may acknowledge.
	assert.ErrorIs(t, engine.AcknowledgeNotification(ctx, bob.ID, notificationID), repos.ErrForbidden)

	require.NoError(t, engine.AcknowledgeNotification(ctx, alice.ID, notificationID))
	// Re-acknowledging is a no-op, not an error.
	require.NoError(t, engine.AcknowledgeNotification(ctx, alice.ID, notificationID))

	_, total, err := engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestNotificationEnrichmentDegradesOnDeletedContent(t *testing.T) {
	engine, db := newTestEngine(t, 0)
	ctx := context.Background()

	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	post := mustPost(t, db, alice, "hello", time.Now())

	require.NoError(t, engine.React(ctx, bob.ID, models.KindPost, post.ID, models.ReactionLike))
	require.NoError(t, db.Delete(&models.Post{}, post.ID).Error)

	views, total, err := engine.Notifications(ctx, alice.ID, repos.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].Post)
}
