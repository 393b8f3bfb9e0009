package postgres

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id       BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role     TEXT NOT NULL DEFAULT 'User'
	)`,
	`CREATE TABLE IF NOT EXISTS progressions (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		count             BIGINT NOT NULL DEFAULT 0,
		multiplier        BIGINT NOT NULL DEFAULT 1,
		best_score        BIGINT NOT NULL DEFAULT 0,
		total_click_value BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL,
		price        BIGINT NOT NULL,
		max_quantity BIGINT NOT NULL,
		click_value  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventories (
		id       BIGSERIAL PRIMARY KEY,
		user_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id  BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		quantity BIGINT NOT NULL DEFAULT 0,
		UNIQUE (user_id, item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_progressions_best_score ON progressions (best_score DESC)`,
}

// EnsureSchema creates the tables the store depends on. Statements are
// idempotent so running it on every boot is safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
