package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/convictionlabs/conviction/models"
)

func TestFilterVisible(t *testing.T) {
	posts := []*models.Post{
		{ID: 1, UserID: 10},
		{ID: 2, UserID: 20},
		{ID: 3, UserID: 30},
		{ID: 4, UserID: 10},
	}

	tests := []struct {
		name      string
		blocks    []uint
		blockedBy []uint
		wantIDs   []uint
	}{
		{
			name:    "empty block data passes everything",
			wantIDs: []uint{1, 2, 3, 4},
		},
		{
			name:    "viewer blocked an author",
			blocks:  []uint{10},
			wantIDs: []uint{2, 3},
		},
		{
			name:      "author blocked the viewer",
			blockedBy: []uint{20},
			wantIDs:   []uint{1, 3, 4},
		},
		{
			name:      "both directions filter",
			blocks:    []uint{10},
			blockedBy: []uint{30},
			wantIDs:   []uint{2},
		},
		{
			name:      "everything hidden",
			blocks:    []uint{10, 20},
			blockedBy: []uint{30},
			wantIDs:   []uint{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			visible := FilterVisible(posts, NewBlockData(tc.blocks, tc.blockedBy))
			gotIDs := make([]uint, 0, len(visible))
			for _, p := range visible {
				gotIDs = append(gotIDs, p.ID)
			}
			assert.Equal(t, tc.wantIDs, gotIDs)
		})
	}
}

func TestFilterVisiblePreservesOrder(t *testing.T) {
	theses := []*models.Thesis{
		{ID: 5, UserID: 1},
		{ID: 3, UserID: 2},
		{ID: 9, UserID: 1},
	}
	visible := FilterVisible(theses, NewBlockData([]uint{2}, nil))
	assert.Len(t, visible, 2)
	assert.Equal(t, uint(5), visible[0].ID)
	assert.Equal(t, uint(9), visible[1].ID)
}

func TestHiddenChecksBothDirections(t *testing.T) {
	data := NewBlockData([]uint{1}, []uint{2})
	assert.True(t, data.Hidden(1))
	assert.True(t, data.Hidden(2))
	assert.False(t, data.Hidden(3))
}
