package repos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convictionlabs/conviction/models"
)

func TestBlockAddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	require.NoError(t, reg.Blocks().Add(ctx, alice.ID, bob.ID))
	require.NoError(t, reg.Blocks().Add(ctx, alice.ID, bob.ID))

	var count int64
	require.NoError(t, db.Model(&models.Block{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBlockSelfRejected(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)

	alice := seedUser(t, db, "alice")
	assert.Error(t, reg.Blocks().Add(context.Background(), alice.ID, alice.ID))
}

func TestBlockDirections(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	require.NoError(t, reg.Blocks().Add(ctx, alice.ID, bob.ID))
	require.NoError(t, reg.Blocks().Add(ctx, carol.ID, alice.ID))

	blocks, err := reg.Blocks().ListBlocksBy(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, blocks)

	blockedBy, err := reg.Blocks().ListBlocksOn(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{carol.ID}, blockedBy)
}

func TestBlockRemove(t *testing.T) {
	db := newTestDB(t)
	reg := New(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	require.NoError(t, reg.Blocks().Add(ctx, alice.ID, bob.ID))
	require.NoError(t, reg.Blocks().Remove(ctx, alice.ID, bob.ID))
	assert.ErrorIs(t, reg.Blocks().Remove(ctx, alice.ID, bob.ID), ErrNotFound)
}
