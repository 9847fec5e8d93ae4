// Package feed implements the content visibility and interaction
// aggregation engine: block filtering, viewer reaction annotation, bounded
// thread resolution, the rationale capacity guard, and the notification
// feed. It consumes the storage contracts in package repos and performs no
// HTTP work of its own.
package feed

// BlockData holds the two directions of a viewer's block relations as
// lookup sets, so filtering stays linear in the number of items.
type BlockData struct {
	Blocks    map[uint]struct{} // users the viewer has blocked
	BlockedBy map[uint]struct{} // users that have blocked the viewer
}

// NewBlockData builds lookup sets from raw id lists.
func NewBlockData(blocks, blockedBy []uint) BlockData {
	data := BlockData{
		Blocks:    make(map[uint]struct{}, len(blocks)),
		BlockedBy: make(map[uint]struct{}, len(blockedBy)),
	}
	for _, id := range blocks {
		data.Blocks[id] = struct{}{}
	}
	for _, id := range blockedBy {
		data.BlockedBy[id] = struct{}{}
	}
	return data
}

// Hidden reports whether content authored by authorID is invisible to the
// viewer, in either block direction.
func (b BlockData) Hidden(authorID uint) bool {
	if _, ok := b.Blocks[authorID]; ok {
		return true
	}
	_, ok := b.BlockedBy[authorID]
	return ok
}

// Authored is anything with an author the visibility filter can inspect.
type Authored interface {
	AuthorID() uint
}

// FilterVisible removes items whose author falls on either side of a block
// edge with the viewer. Order is preserved; empty block data passes
// everything through.
func FilterVisible[T Authored](items []T, blocks BlockData) []T {
	if len(blocks.Blocks) == 0 && len(blocks.BlockedBy) == 0 {
		return items
	}
	visible := make([]T, 0, len(items))
	for _, item := range items {
		if blocks.Hidden(item.AuthorID()) {
			continue
		}
		visible = append(visible, item)
	}
	return visible
}
