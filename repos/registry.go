package repos

import (
	"context"

	"gorm.io/gorm"
)

// Registry bundles the storage contracts the engine consumes. Transaction
// yields a registry whose stores share one database transaction, so
// multi-store writes (reaction + notification, comment + counter bump)
// commit or roll back together.
type Registry interface {
	Content() ContentStore
	Reactions() ReactionStore
	Blocks() BlockStore
	Rationales() RationaleStore
	Notifications() NotificationStore

	Transaction(ctx context.Context, fn func(Registry) error) error
}

type gormRegistry struct {
	db *gorm.DB
}

// New builds a Registry backed by the given GORM handle. The handle is
// injected once at process start; stores never reach for globals.
func New(db *gorm.DB) Registry {
	return &gormRegistry{db: db}
}

func (r *gormRegistry) Content() ContentStore             { return &contentStore{db: r.db} }
func (r *gormRegistry) Reactions() ReactionStore          { return &reactionStore{db: r.db} }
func (r *gormRegistry) Blocks() BlockStore                { return &blockStore{db: r.db} }
func (r *gormRegistry) Rationales() RationaleStore        { return &rationaleStore{db: r.db} }
func (r *gormRegistry) Notifications() NotificationStore  { return &notificationStore{db: r.db} }

func (r *gormRegistry) Transaction(ctx context.Context, fn func(Registry) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
