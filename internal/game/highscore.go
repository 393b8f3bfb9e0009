package game

import (
	"context"
	"sync"
)

// HighScoreCache memoizes the global best score and its holder so a click
// never has to rescan every progression. It is a lower bound on the true
// maximum: populated lazily by one full scan, then only ever raised.
// All access goes through a single mutex; the engines never touch the
// fields directly.
type HighScoreCache struct {
	mu        sync.Mutex
	populated bool
	score     int64
	userID    int64
	hasUser   bool
}

func NewHighScoreCache() *HighScoreCache {
	return &HighScoreCache{}
}

// bestScan loads the current global maximum from the store. found is
// false when no progression exists at all.
type bestScan func(ctx context.Context) (score int64, userID int64, found bool, err error)

// Update records a user's new personal best against the cached global
// record, holding the lock for the whole read-modify-write. On first use
// it populates the cache via scan. It reports true only when the best
// beats the cached score and the user is not already the cached holder;
// a holder raising their own record updates the cache silently.
func (c *HighScoreCache) Update(ctx context.Context, userID, bestScore int64, scan bestScan) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.populated {
		score, holder, found, err := scan(ctx)
		if err != nil {
			return false, err
		}
		if found {
			c.score = score
			c.userID = holder
			c.hasUser = true
		}
		c.populated = true
	}

	if bestScore <= c.score {
		return false, nil
	}
	newRecord := !(c.hasUser && c.userID == userID)
	c.score = bestScore
	c.userID = userID
	c.hasUser = true
	return newRecord, nil
}

// Snapshot returns the cached record. Holder is false when no user has
// been attributed yet.
func (c *HighScoreCache) Snapshot() (score int64, userID int64, holder bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score, c.userID, c.hasUser
}

// Reset clears the cache back to its unset state. Meant for controlled
// restarts and test isolation, not for production traffic.
func (c *HighScoreCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.populated = false
	c.score = 0
	c.userID = 0
	c.hasUser = false
}
