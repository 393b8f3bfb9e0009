// Package memory is an in-process implementation of the game store. It
// backs local development runs without a database and the engine tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"clickrush/internal/game"
)

type state struct {
	users        map[int64]game.User
	progressions map[int64]game.Progression // keyed by user id
	items        map[int64]game.Item
	inventories  map[int64]game.InventoryEntry

	nextUserID  int64
	nextProgID  int64
	nextItemID  int64
	nextEntryID int64
}

func newState() *state {
	return &state{
		users:        make(map[int64]game.User),
		progressions: make(map[int64]game.Progression),
		items:        make(map[int64]game.Item),
		inventories:  make(map[int64]game.InventoryEntry),
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.progressions {
		out.progressions[k] = v
	}
	for k, v := range st.items {
		out.items[k] = v
	}
	for k, v := range st.inventories {
		out.inventories[k] = v
	}
	out.nextUserID = st.nextUserID
	out.nextProgID = st.nextProgID
	out.nextItemID = st.nextItemID
	out.nextEntryID = st.nextEntryID
	return out
}

// Store guards one state value with a single mutex. WithTx runs against a
// deep copy and swaps it in only on success, which gives the same
// no-partial-effect guarantee as a database rollback.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) UserByID(ctx context.Context, id int64) (game.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.userByID(id)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (game.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.userByUsername(username)
}

func (s *Store) CreateUser(ctx context.Context, u *game.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createUser(u)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteUser(id)
}

func (s *Store) AdminExists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.adminExists()
}

func (s *Store) ProgressionByUserID(ctx context.Context, userID int64) (game.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.progressionByUserID(userID)
}

func (s *Store) CreateProgression(ctx context.Context, p *game.Progression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createProgression(p)
}

func (s *Store) SaveProgression(ctx context.Context, p *game.Progression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveProgression(p)
}

func (s *Store) TopProgression(ctx context.Context) (game.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.topProgression()
}

func (s *Store) DeleteProgressionByUserID(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteProgressionByUserID(userID)
}

func (s *Store) Items(ctx context.Context) ([]game.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listItems(), nil
}

func (s *Store) ItemByID(ctx context.Context, id int64) (game.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.itemByID(id)
}

func (s *Store) ReplaceItems(ctx context.Context, items []game.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.replaceItems(items)
}

func (s *Store) InventoryEntry(ctx context.Context, userID, itemID int64) (game.InventoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.inventoryEntry(userID, itemID)
}

func (s *Store) InventoryByUserID(ctx context.Context, userID int64) ([]game.InventoryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.inventoryByUserID(userID), nil
}

func (s *Store) CreateInventoryEntry(ctx context.Context, e *game.InventoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createInventoryEntry(e)
}

func (s *Store) SaveInventoryEntry(ctx context.Context, e *game.InventoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveInventoryEntry(e)
}

func (s *Store) DeleteInventoryByUserID(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.deleteInventoryByUserID(userID)
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx game.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&txStore{st: snapshot}); err != nil {
		return err
	}
	s.st = snapshot
	return nil
}

// txStore is the view handed to a WithTx callback. The outer mutex is
// already held, so it touches the snapshot directly.
type txStore struct {
	st *state
}

func (t *txStore) UserByID(ctx context.Context, id int64) (game.User, error) {
	return t.st.userByID(id)
}

func (t *txStore) UserByUsername(ctx context.Context, username string) (game.User, error) {
	return t.st.userByUsername(username)
}

func (t *txStore) CreateUser(ctx context.Context, u *game.User) error {
	return t.st.createUser(u)
}

func (t *txStore) DeleteUser(ctx context.Context, id int64) error {
	return t.st.deleteUser(id)
}

func (t *txStore) AdminExists(ctx context.Context) (bool, error) {
	return t.st.adminExists()
}

func (t *txStore) ProgressionByUserID(ctx context.Context, userID int64) (game.Progression, error) {
	return t.st.progressionByUserID(userID)
}

func (t *txStore) CreateProgression(ctx context.Context, p *game.Progression) error {
	return t.st.createProgression(p)
}

func (t *txStore) SaveProgression(ctx context.Context, p *game.Progression) error {
	return t.st.saveProgression(p)
}

func (t *txStore) TopProgression(ctx context.Context) (game.Progression, error) {
	return t.st.topProgression()
}

func (t *txStore) DeleteProgressionByUserID(ctx context.Context, userID int64) error {
	return t.st.deleteProgressionByUserID(userID)
}

func (t *txStore) Items(ctx context.Context) ([]game.Item, error) {
	return t.st.listItems(), nil
}

func (t *txStore) ItemByID(ctx context.Context, id int64) (game.Item, error) {
	return t.st.itemByID(id)
}

func (t *txStore) ReplaceItems(ctx context.Context, items []game.Item) error {
	return t.st.replaceItems(items)
}

func (t *txStore) InventoryEntry(ctx context.Context, userID, itemID int64) (game.InventoryEntry, error) {
	return t.st.inventoryEntry(userID, itemID)
}

func (t *txStore) InventoryByUserID(ctx context.Context, userID int64) ([]game.InventoryRow, error) {
	return t.st.inventoryByUserID(userID), nil
}

func (t *txStore) CreateInventoryEntry(ctx context.Context, e *game.InventoryEntry) error {
	return t.st.createInventoryEntry(e)
}

func (t *txStore) SaveInventoryEntry(ctx context.Context, e *game.InventoryEntry) error {
	return t.st.saveInventoryEntry(e)
}

func (t *txStore) DeleteInventoryByUserID(ctx context.Context, userID int64) error {
	t.st.deleteInventoryByUserID(userID)
	return nil
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx game.Store) error) error {
	// Already inside a transaction; nest flatly.
	return fn(t)
}

func (st *state) userByID(id int64) (game.User, error) {
	u, ok := st.users[id]
	if !ok {
		return game.User{}, game.ErrNotFound
	}
	return u, nil
}

func (st *state) userByUsername(username string) (game.User, error) {
	for _, u := range st.users {
		if u.Username == username {
			return u, nil
		}
	}
	return game.User{}, game.ErrNotFound
}

func (st *state) createUser(u *game.User) error {
	st.nextUserID++
	u.ID = st.nextUserID
	st.users[u.ID] = *u
	return nil
}

func (st *state) deleteUser(id int64) error {
	if _, ok := st.users[id]; !ok {
		return game.ErrNotFound
	}
	delete(st.users, id)
	return nil
}

func (st *state) adminExists() (bool, error) {
	for _, u := range st.users {
		if u.Role == game.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (st *state) progressionByUserID(userID int64) (game.Progression, error) {
	p, ok := st.progressions[userID]
	if !ok {
		return game.Progression{}, game.ErrNotFound
	}
	return p, nil
}

func (st *state) createProgression(p *game.Progression) error {
	st.nextProgID++
	p.ID = st.nextProgID
	st.progressions[p.UserID] = *p
	return nil
}

func (st *state) saveProgression(p *game.Progression) error {
	if _, ok := st.progressions[p.UserID]; !ok {
		return game.ErrNotFound
	}
	st.progressions[p.UserID] = *p
	return nil
}

func (st *state) topProgression() (game.Progression, error) {
	var best game.Progression
	found := false
	for _, p := range st.progressions {
		if !found || p.BestScore > best.BestScore {
			best = p
			found = true
		}
	}
	if !found {
		return game.Progression{}, game.ErrNotFound
	}
	return best, nil
}

func (st *state) deleteProgressionByUserID(userID int64) error {
	if _, ok := st.progressions[userID]; !ok {
		return game.ErrNotFound
	}
	delete(st.progressions, userID)
	return nil
}

func (st *state) listItems() []game.Item {
	out := make([]game.Item, 0, len(st.items))
	for _, item := range st.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) itemByID(id int64) (game.Item, error) {
	item, ok := st.items[id]
	if !ok {
		return game.Item{}, game.ErrNotFound
	}
	return item, nil
}

func (st *state) replaceItems(items []game.Item) error {
	st.items = make(map[int64]game.Item)
	st.inventories = make(map[int64]game.InventoryEntry)
	for _, item := range items {
		if item.ID == 0 {
			st.nextItemID++
			item.ID = st.nextItemID
		} else if item.ID > st.nextItemID {
			st.nextItemID = item.ID
		}
		st.items[item.ID] = item
	}
	return nil
}

func (st *state) inventoryEntry(userID, itemID int64) (game.InventoryEntry, error) {
	for _, e := range st.inventories {
		if e.UserID == userID && e.ItemID == itemID {
			return e, nil
		}
	}
	return game.InventoryEntry{}, game.ErrNotFound
}

func (st *state) inventoryByUserID(userID int64) []game.InventoryRow {
	out := make([]game.InventoryRow, 0)
	for _, e := range st.inventories {
		if e.UserID != userID {
			continue
		}
		row := game.InventoryRow{
			ID:       e.ID,
			UserID:   e.UserID,
			ItemID:   e.ItemID,
			Quantity: e.Quantity,
		}
		if item, ok := st.items[e.ItemID]; ok {
			row.Item = item
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) createInventoryEntry(e *game.InventoryEntry) error {
	st.nextEntryID++
	e.ID = st.nextEntryID
	st.inventories[e.ID] = *e
	return nil
}

func (st *state) saveInventoryEntry(e *game.InventoryEntry) error {
	if _, ok := st.inventories[e.ID]; !ok {
		return game.ErrNotFound
	}
	st.inventories[e.ID] = *e
	return nil
}

func (st *state) deleteInventoryByUserID(userID int64) {
	for id, e := range st.inventories {
		if e.UserID == userID {
			delete(st.inventories, id)
		}
	}
}
