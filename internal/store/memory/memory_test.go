package memory

import (
	"context"
	"errors"
	"testing"

	"clickrush/internal/game"
)

func TestWithTxCommit(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx game.Store) error {
		u := game.User{Username: "player1", Password: "hash", Role: game.RoleUser}
		if err := tx.CreateUser(ctx, &u); err != nil {
			return err
		}
		p := game.Progression{UserID: u.ID, Multiplier: 1}
		return tx.CreateProgression(ctx, &p)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	u, err := s.UserByUsername(ctx, "player1")
	if err != nil {
		t.Fatalf("user after commit: %v", err)
	}
	if _, err := s.ProgressionByUserID(ctx, u.ID); err != nil {
		t.Fatalf("progression after commit: %v", err)
	}
}

func TestWithTxRollback(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := game.User{Username: "player1", Password: "hash", Role: game.RoleUser}
	if err := s.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	p := game.Progression{UserID: u.ID, Count: 100, Multiplier: 1}
	if err := s.CreateProgression(ctx, &p); err != nil {
		t.Fatalf("create progression: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx game.Store) error {
		got, err := tx.ProgressionByUserID(ctx, u.ID)
		if err != nil {
			return err
		}
		got.Count = 0
		if err := tx.SaveProgression(ctx, &got); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := s.ProgressionByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("progression after rollback: %v", err)
	}
	if got.Count != 100 {
		t.Fatalf("rollback must discard writes, count=%d", got.Count)
	}
}

func TestNotFoundMapping(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UserByID(ctx, 99); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ProgressionByUserID(ctx, 99); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ItemByID(ctx, 99); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.TopProgression(ctx); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty table, got %v", err)
	}
}

func TestReplaceItemsWipesInventories(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := game.User{Username: "player1", Password: "hash", Role: game.RoleUser}
	if err := s.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.ReplaceItems(ctx, []game.Item{{Name: "cursor", Price: 1, MaxQuantity: 1, ClickValue: 1}}); err != nil {
		t.Fatalf("seed items: %v", err)
	}
	items, err := s.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	entry := game.InventoryEntry{UserID: u.ID, ItemID: items[0].ID, Quantity: 1}
	if err := s.CreateInventoryEntry(ctx, &entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := s.ReplaceItems(ctx, []game.Item{{Name: "factory", Price: 2, MaxQuantity: 1, ClickValue: 2}}); err != nil {
		t.Fatalf("replace items: %v", err)
	}
	rows, err := s.InventoryByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("replacing the catalog must clear inventories, got %+v", rows)
	}
}
