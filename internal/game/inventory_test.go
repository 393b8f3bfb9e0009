package game_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clickrush/internal/game"
	"clickrush/internal/store/memory"
)

func seedCatalog(t *testing.T, store *memory.Store, items ...game.Item) []game.Item {
	t.Helper()
	ctx := context.Background()
	if err := store.ReplaceItems(ctx, items); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	out, err := store.Items(ctx)
	if err != nil {
		t.Fatalf("list catalog: %v", err)
	}
	return out
}

func TestBuyDebitsAndAccumulates(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u := registerPlayer(t, svc, "player1")
	seedProgression(t, store, u.ID, 1000, 1, 0, 0)
	items := seedCatalog(t, store, game.Item{Name: "cursor", Price: 100, MaxQuantity: 2, ClickValue: 5})

	out, err := svc.Buy(ctx, items[0].ID, u.ID)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if len(out.Inventory) != 1 || out.Inventory[0].Quantity != 1 {
		t.Fatalf("unexpected inventory after first buy: %+v", out.Inventory)
	}
	p, err := svc.GetProgression(ctx, u.ID)
	if err != nil {
		t.Fatalf("get progression: %v", err)
	}
	if p.Count != 900 || p.TotalClickValue != 5 {
		t.Fatalf("count=%d tcv=%d want 900/5", p.Count, p.TotalClickValue)
	}

	out, err = svc.Buy(ctx, items[0].ID, u.ID)
	if err != nil {
		t.Fatalf("second buy: %v", err)
	}
	if out.Inventory[0].Quantity != 2 {
		t.Fatalf("quantity=%d want 2", out.Inventory[0].Quantity)
	}
	p, _ = svc.GetProgression(ctx, u.ID)
	if p.Count != 800 || p.TotalClickValue != 10 {
		t.Fatalf("count=%d tcv=%d want 800/10", p.Count, p.TotalClickValue)
	}

	_, err = svc.Buy(ctx, items[0].ID, u.ID)
	if !game.IsCode(err, game.CodeInventoryFull) {
		t.Fatalf("expected %s, got %v", game.CodeInventoryFull, err)
	}
}

func TestBuyNotEnoughMoneyRollsBack(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u := registerPlayer(t, svc, "player1")
	seedProgression(t, store, u.ID, 50, 1, 0, 0)
	items := seedCatalog(t, store, game.Item{Name: "factory", Price: 100, MaxQuantity: 3, ClickValue: 20})

	_, err := svc.Buy(ctx, items[0].ID, u.ID)
	if !game.IsCode(err, game.CodeNotEnoughMoney) {
		t.Fatalf("expected %s, got %v", game.CodeNotEnoughMoney, err)
	}

	p, err := svc.GetProgression(ctx, u.ID)
	if err != nil {
		t.Fatalf("get progression: %v", err)
	}
	if p.Count != 50 || p.TotalClickValue != 0 {
		t.Fatalf("failed buy must leave progression untouched: %+v", p)
	}
	inv, err := svc.GetInventory(ctx, u.ID)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(inv) != 0 {
		t.Fatalf("failed buy must leave inventory empty, got %+v", inv)
	}
}

func TestBuyUnknownItem(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u := registerPlayer(t, svc, "player1")
	seedProgression(t, store, u.ID, 1000, 1, 0, 0)

	_, err := svc.Buy(ctx, 999, u.ID)
	if !game.IsCode(err, game.CodeItemNotFound) {
		t.Fatalf("expected %s, got %v", game.CodeItemNotFound, err)
	}
}

func TestBuyWithoutProgression(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u := registerPlayer(t, svc, "player1")
	items := seedCatalog(t, store, game.Item{Name: "cursor", Price: 1, MaxQuantity: 1, ClickValue: 1})

	_, err := svc.Buy(ctx, items[0].ID, u.ID)
	if !game.IsCode(err, game.CodeUserNotFound) {
		t.Fatalf("expected %s, got %v", game.CodeUserNotFound, err)
	}
}

func TestBuyNegativeClickValueSkipsDebit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u := registerPlayer(t, svc, "player1")
	seedProgression(t, store, u.ID, 1000, 1, 0, 0)
	items := seedCatalog(t, store, game.Item{Name: "cursed relic", Price: 100, MaxQuantity: 5, ClickValue: -5})

	out, err := svc.Buy(ctx, items[0].ID, u.ID)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	// Crediting would go negative, so the bonus clamps at zero and the
	// price is never charged. The item still lands in the inventory.
	if len(out.Inventory) != 1 || out.Inventory[0].Quantity != 1 {
		t.Fatalf("unexpected inventory: %+v", out.Inventory)
	}
	p, err := svc.GetProgression(ctx, u.ID)
	if err != nil {
		t.Fatalf("get progression: %v", err)
	}
	if p.Count != 1000 {
		t.Fatalf("count=%d want 1000 (no debit)", p.Count)
	}
	if p.TotalClickValue != 0 {
		t.Fatalf("tcv=%d want 0", p.TotalClickValue)
	}
}

func TestGetInventoryInvalidUser(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetInventory(context.Background(), 0); !game.IsCode(err, game.CodeInvalidUserID) {
		t.Fatalf("expected %s, got %v", game.CodeInvalidUserID, err)
	}
}

func TestGetItemsEmptyCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetItems(context.Background()); !game.IsCode(err, game.CodeNoItems) {
		t.Fatalf("expected %s, got %v", game.CodeNoItems, err)
	}
}

func TestSeedItemsFromFeed(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "name": "cursor", "price": 100, "maxQuantity": 10, "clickValue": 1},
			{"id": 2, "name": "factory", "price": 5000, "maxQuantity": 3, "clickValue": 50}
		]`))
	}))
	defer feed.Close()

	store := memory.New()
	svc := game.NewService(store, game.NewHighScoreCache(), feed.URL, nil)

	seeded, err := svc.SeedItems(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatalf("expected seeded=true")
	}
	items, err := svc.GetItems(context.Background())
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 || items[0].Name != "cursor" || items[1].Price != 5000 {
		t.Fatalf("unexpected catalog: %+v", items)
	}
}

func TestSeedItemsEmptyFeed(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer feed.Close()

	store := memory.New()
	svc := game.NewService(store, game.NewHighScoreCache(), feed.URL, nil)

	seeded, err := svc.SeedItems(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded {
		t.Fatalf("empty feed must report seeded=false")
	}
}

func TestSeedItemsNoFeedConfigured(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.SeedItems(context.Background()); err == nil {
		t.Fatalf("expected error without a feed url")
	}
}
