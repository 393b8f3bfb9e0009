package game

import "context"

// Store is the persistence contract the engines run against. Lookups
// return ErrNotFound on a miss. Implementations live in
// internal/store/postgres and internal/store/memory.
type Store interface {
	UserByID(ctx context.Context, id int64) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id int64) error
	AdminExists(ctx context.Context) (bool, error)

	ProgressionByUserID(ctx context.Context, userID int64) (Progression, error)
	CreateProgression(ctx context.Context, p *Progression) error
	SaveProgression(ctx context.Context, p *Progression) error
	// TopProgression returns the progression with the highest best score.
	TopProgression(ctx context.Context) (Progression, error)
	DeleteProgressionByUserID(ctx context.Context, userID int64) error

	Items(ctx context.Context) ([]Item, error)
	ItemByID(ctx context.Context, id int64) (Item, error)
	// ReplaceItems wipes the catalog and every inventory, then inserts
	// the given items. Used by seeding only.
	ReplaceItems(ctx context.Context, items []Item) error

	InventoryEntry(ctx context.Context, userID, itemID int64) (InventoryEntry, error)
	InventoryByUserID(ctx context.Context, userID int64) ([]InventoryRow, error)
	CreateInventoryEntry(ctx context.Context, e *InventoryEntry) error
	SaveInventoryEntry(ctx context.Context, e *InventoryEntry) error
	DeleteInventoryByUserID(ctx context.Context, userID int64) error

	// WithTx runs fn inside a single transaction: every store call made
	// through the passed Store commits together or not at all. fn
	// returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
