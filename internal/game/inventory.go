package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Buy purchases one unit of an item for the user. Fund and capacity
// checks plus the debit/credit all happen inside a single store
// transaction; any failure leaves no partial state behind.
func (s *Service) Buy(ctx context.Context, itemID, userID int64) (BuyResult, error) {
	var out BuyResult

	err := s.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.ProgressionByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return NewError(CodeUserNotFound, http.StatusNotFound)
			}
			return err
		}

		item, err := tx.ItemByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return NewError(CodeItemNotFound, http.StatusBadRequest)
			}
			return err
		}

		entry, err := tx.InventoryEntry(ctx, userID, itemID)
		haveEntry := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if haveEntry && entry.Quantity >= item.MaxQuantity {
			return NewError(CodeInventoryFull, http.StatusBadRequest)
		}

		if p.Count < item.Price {
			return NewError(CodeNotEnoughMoney, http.StatusBadRequest)
		}

		applyPurchaseEconomics(&p, item)

		if !haveEntry {
			entry = InventoryEntry{UserID: userID, ItemID: itemID, Quantity: 1}
			if err := tx.CreateInventoryEntry(ctx, &entry); err != nil {
				return err
			}
		} else {
			entry.Quantity++
			if err := tx.SaveInventoryEntry(ctx, &entry); err != nil {
				return err
			}
		}

		if err := tx.SaveProgression(ctx, &p); err != nil {
			return err
		}
		out.Item = item
		return nil
	})
	if err != nil {
		return BuyResult{}, err
	}

	if user, err := s.store.UserByID(ctx, userID); err == nil {
		out.Username = user.Username
	} else if !errors.Is(err, ErrNotFound) {
		return BuyResult{}, err
	}
	inventory, err := s.GetInventory(ctx, userID)
	if err != nil {
		return BuyResult{}, err
	}
	out.Inventory = inventory

	s.log.Info("item purchased", "user_id", userID, "item_id", itemID, "price", out.Item.Price)
	return out, nil
}

// applyPurchaseEconomics applies the debit and bonus credit of a
// purchase. When crediting would drive the bonus negative it only clamps
// the bonus at zero and skips the debit entirely, mirroring the game's
// historical behavior; correcting that asymmetry is a one-line change
// here.
func applyPurchaseEconomics(p *Progression, item Item) {
	if p.TotalClickValue+item.ClickValue < 0 {
		if p.TotalClickValue < 0 {
			p.TotalClickValue = 0
		}
		return
	}
	p.TotalClickValue += item.ClickValue
	p.Count -= item.Price
}

// GetInventory returns the user's inventory joined with item details.
func (s *Service) GetInventory(ctx context.Context, userID int64) ([]InventoryRow, error) {
	if userID <= 0 {
		return nil, NewError(CodeInvalidUserID, http.StatusUnauthorized)
	}
	rows, err := s.store.InventoryByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []InventoryRow{}
	}
	return rows, nil
}

// GetItems lists the catalog.
func (s *Service) GetItems(ctx context.Context) ([]Item, error) {
	items, err := s.store.Items(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, NewError(CodeNoItems, http.StatusNotFound)
	}
	return items, nil
}

// SeedItems pulls the catalog from the external JSON feed and replaces
// the item table with it, wiping every inventory along the way. Returns
// false when the feed had nothing to load.
func (s *Service) SeedItems(ctx context.Context) (bool, error) {
	if strings.TrimSpace(s.feedURL) == "" {
		return false, fmt.Errorf("items feed url is not configured")
	}

	s.log.Info("fetching items feed", "url", s.feedURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("items feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("items feed status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return false, fmt.Errorf("decode items feed: %w", err)
	}
	if len(items) == 0 {
		s.log.Info("items feed empty, nothing to load")
		return false, nil
	}

	if err := s.store.ReplaceItems(ctx, items); err != nil {
		return false, err
	}
	s.log.Info("items seeded", "count", len(items))
	return true, nil
}
