// Package postgres implements the game store on pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clickrush/internal/game"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// store code serves plain calls and transactional ones.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   querier
	pool *pgxpool.Pool // nil inside a transaction
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// WithTx opens a read-committed transaction, hands fn a Store bound to
// it, and commits only when fn succeeds. Nested calls run flatly inside
// the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx game.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) UserByID(ctx context.Context, id int64) (game.User, error) {
	var u game.User
	err := s.db.QueryRow(ctx, `
		SELECT id, username, password, role
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Password, &u.Role)
	return u, mapNoRows(err)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (game.User, error) {
	var u game.User
	err := s.db.QueryRow(ctx, `
		SELECT id, username, password, role
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Password, &u.Role)
	return u, mapNoRows(err)
}

func (s *Store) CreateUser(ctx context.Context, u *game.User) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO users (username, password, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, u.Username, u.Password, u.Role).Scan(&u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	cmd, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *Store) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)
	`, game.RoleAdmin).Scan(&exists)
	return exists, err
}

func (s *Store) ProgressionByUserID(ctx context.Context, userID int64) (game.Progression, error) {
	var p game.Progression
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, count, multiplier, best_score, total_click_value
		FROM progressions
		WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.Count, &p.Multiplier, &p.BestScore, &p.TotalClickValue)
	return p, mapNoRows(err)
}

func (s *Store) CreateProgression(ctx context.Context, p *game.Progression) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO progressions (user_id, count, multiplier, best_score, total_click_value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.UserID, p.Count, p.Multiplier, p.BestScore, p.TotalClickValue).Scan(&p.ID)
}

func (s *Store) SaveProgression(ctx context.Context, p *game.Progression) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE progressions
		SET count = $1, multiplier = $2, best_score = $3, total_click_value = $4
		WHERE user_id = $5
	`, p.Count, p.Multiplier, p.BestScore, p.TotalClickValue, p.UserID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *Store) TopProgression(ctx context.Context) (game.Progression, error) {
	var p game.Progression
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, count, multiplier, best_score, total_click_value
		FROM progressions
		ORDER BY best_score DESC
		LIMIT 1
	`).Scan(&p.ID, &p.UserID, &p.Count, &p.Multiplier, &p.BestScore, &p.TotalClickValue)
	return p, mapNoRows(err)
}

func (s *Store) DeleteProgressionByUserID(ctx context.Context, userID int64) error {
	cmd, err := s.db.Exec(ctx, `DELETE FROM progressions WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *Store) Items(ctx context.Context) ([]game.Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price, max_quantity, click_value
		FROM items
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Item
	for rows.Next() {
		var item game.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.MaxQuantity, &item.ClickValue); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) ItemByID(ctx context.Context, id int64) (game.Item, error) {
	var item game.Item
	err := s.db.QueryRow(ctx, `
		SELECT id, name, price, max_quantity, click_value
		FROM items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Price, &item.MaxQuantity, &item.ClickValue)
	return item, mapNoRows(err)
}

func (s *Store) ReplaceItems(ctx context.Context, items []game.Item) error {
	return s.WithTx(ctx, func(tx game.Store) error {
		ts := tx.(*Store)
		if _, err := ts.db.Exec(ctx, `DELETE FROM inventories`); err != nil {
			return err
		}
		if _, err := ts.db.Exec(ctx, `DELETE FROM items`); err != nil {
			return err
		}
		for _, item := range items {
			var err error
			if item.ID > 0 {
				_, err = ts.db.Exec(ctx, `
					INSERT INTO items (id, name, price, max_quantity, click_value)
					VALUES ($1, $2, $3, $4, $5)
				`, item.ID, item.Name, item.Price, item.MaxQuantity, item.ClickValue)
			} else {
				_, err = ts.db.Exec(ctx, `
					INSERT INTO items (name, price, max_quantity, click_value)
					VALUES ($1, $2, $3, $4)
				`, item.Name, item.Price, item.MaxQuantity, item.ClickValue)
			}
			if err != nil {
				return err
			}
		}
		_, err := ts.db.Exec(ctx, `
			SELECT setval(pg_get_serial_sequence('items', 'id'), (SELECT COALESCE(MAX(id), 1) FROM items))
		`)
		return err
	})
}

func (s *Store) InventoryEntry(ctx context.Context, userID, itemID int64) (game.InventoryEntry, error) {
	var e game.InventoryEntry
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, item_id, quantity
		FROM inventories
		WHERE user_id = $1 AND item_id = $2
	`, userID, itemID).Scan(&e.ID, &e.UserID, &e.ItemID, &e.Quantity)
	return e, mapNoRows(err)
}

func (s *Store) InventoryByUserID(ctx context.Context, userID int64) ([]game.InventoryRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT inv.id, inv.user_id, inv.item_id, inv.quantity,
		       i.id, i.name, i.price, i.max_quantity, i.click_value
		FROM inventories inv
		JOIN items i ON i.id = inv.item_id
		WHERE inv.user_id = $1
		ORDER BY inv.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.InventoryRow
	for rows.Next() {
		var r game.InventoryRow
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.ItemID, &r.Quantity,
			&r.Item.ID, &r.Item.Name, &r.Item.Price, &r.Item.MaxQuantity, &r.Item.ClickValue,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateInventoryEntry(ctx context.Context, e *game.InventoryEntry) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO inventories (user_id, item_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`, e.UserID, e.ItemID, e.Quantity).Scan(&e.ID)
}

func (s *Store) SaveInventoryEntry(ctx context.Context, e *game.InventoryEntry) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE inventories
		SET quantity = $1
		WHERE id = $2
	`, e.Quantity, e.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteInventoryByUserID(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM inventories WHERE user_id = $1`, userID)
	return err
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return game.ErrNotFound
	}
	return err
}
