package repos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convictionlabs/conviction/models"
)

func TestRationaleBucketCounting(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	author := seedUser(t, db, "bob")

	bullOne := seedThesis(t, db, author, "TSLA", models.SentimentBull)
	bullTwo := seedThesis(t, db, author, "TSLA", models.SentimentBull)
	bear := seedThesis(t, db, author, "TSLA", models.SentimentBear)
	otherAsset := seedThesis(t, db, author, "AAPL", models.SentimentBull)

	for _, thesis := range []*models.Thesis{bullOne, bullTwo, bear, otherAsset} {
		_, err := reg.Rationales().Create(ctx, user.ID, thesis.ID)
		require.NoError(t, err)
	}

	count, err := reg.Rationales().CountInBucket(ctx, user.ID, "TSLA", models.SentimentBull)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Sentiment and asset each define their own bucket.
	count, err = reg.Rationales().CountInBucket(ctx, user.ID, "TSLA", models.SentimentBear)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = reg.Rationales().CountInBucket(ctx, user.ID, "AAPL", models.SentimentBull)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Another user's library does not share the bucket.
	count, err = reg.Rationales().CountInBucket(ctx, author.ID, "TSLA", models.SentimentBull)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRationaleDuplicateSave(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	author := seedUser(t, db, "bob")
	thesis := seedThesis(t, db, author, "TSLA", models.SentimentBull)

	_, err := reg.Rationales().Create(ctx, user.ID, thesis.ID)
	require.NoError(t, err)

	_, err = reg.Rationales().Create(ctx, user.ID, thesis.ID)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRationaleQueryByBucket(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	author := seedUser(t, db, "bob")
	bull := seedThesis(t, db, author, "TSLA", models.SentimentBull)
	bear := seedThesis(t, db, author, "TSLA", models.SentimentBear)

	_, err := reg.Rationales().Create(ctx, user.ID, bull.ID)
	require.NoError(t, err)
	_, err = reg.Rationales().Create(ctx, user.ID, bear.ID)
	require.NoError(t, err)

	userID := user.ID
	entries, total, err := reg.Rationales().Query(ctx, RationaleFilter{
		UserID:      &userID,
		AssetSymbol: "TSLA",
		Sentiment:   models.SentimentBull,
	}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, bull.ID, entries[0].ThesisID)
}

func TestRationaleDelete(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	author := seedUser(t, db, "bob")
	thesis := seedThesis(t, db, author, "TSLA", models.SentimentBull)

	entry, err := reg.Rationales().Create(ctx, user.ID, thesis.ID)
	require.NoError(t, err)

	require.NoError(t, reg.Rationales().Delete(ctx, entry.ID))
	assert.ErrorIs(t, reg.Rationales().Delete(ctx, entry.ID), ErrNotFound)

	// Deleting frees the bucket slot.
	count, err := reg.Rationales().CountInBucket(ctx, user.ID, "TSLA", models.SentimentBull)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
