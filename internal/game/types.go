package game

// Roles assigned at registration. The first account ever created becomes
// the admin; everyone after that is a regular user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

// Progression is a user's persistent game state. Count is the spendable
// score, BestScore a monotonic watermark of Count, TotalClickValue the
// accumulated per-click bonus from owned items.
type Progression struct {
	ID              int64 `json:"id"`
	UserID          int64 `json:"userId"`
	Count           int64 `json:"count"`
	Multiplier      int64 `json:"multiplier"`
	BestScore       int64 `json:"bestScore"`
	TotalClickValue int64 `json:"totalClickValue"`
}

// Item is a catalog entry. Immutable during gameplay; rows come from the
// external JSON feed via SeedItems.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	MaxQuantity int64  `json:"maxQuantity"`
	ClickValue  int64  `json:"clickValue"`
}

type InventoryEntry struct {
	ID       int64 `json:"id"`
	UserID   int64 `json:"userId"`
	ItemID   int64 `json:"itemId"`
	Quantity int64 `json:"quantity"`
}

// InventoryRow is an inventory entry joined with its item, the shape
// returned to clients.
type InventoryRow struct {
	ID       int64 `json:"id"`
	UserID   int64 `json:"userId"`
	ItemID   int64 `json:"itemId"`
	Quantity int64 `json:"quantity"`
	Item     Item  `json:"item"`
}

// Game is the lightweight snapshot a click answers with.
type Game struct {
	Count      int64 `json:"count"`
	Multiplier int64 `json:"multiplier"`
}

// ClickResult carries the snapshot plus the high-score notification
// fields the caller may broadcast.
type ClickResult struct {
	Game           Game
	IsNewHighScore bool
	Username       string
	NewBestScore   int64
}

// ResetResult reports the post-reset progression and what to announce.
type ResetResult struct {
	Progression      Progression
	Username         string
	ScoreBeforeReset int64
}

// BuyResult is the purchase outcome: the user's full refreshed inventory,
// the buyer's username and the item bought. Whether the purchase is worth
// a broadcast is the caller's call.
type BuyResult struct {
	Inventory []InventoryRow
	Username  string
	Item      Item
}

// BestScore is the leaderboard head: the holder of the highest best score.
type BestScore struct {
	UserID    int64 `json:"userId"`
	BestScore int64 `json:"bestScore"`
}

// ResetCost is the standalone cost quote for a prestige reset.
type ResetCost struct {
	Cost int64 `json:"cost"`
}
