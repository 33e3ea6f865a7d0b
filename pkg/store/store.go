// Package store is the persistence collaborator for the bot: usage
// counters, linked auth tokens, blacklists, active channels and owners.
package store

import (
	"context"

	"go.mau.fi/util/dbutil"
)

// Store wraps the bot database. All operations are point lookups or
// single-row upserts; per-user updates rely on the database's native
// atomic upsert so concurrent messages cannot race past the free-tier
// gate.
type Store struct {
	db *dbutil.Database
}

// New wraps an existing database handle.
func New(db *dbutil.Database) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS usage_counts (
	user_id       TEXT PRIMARY KEY,
	message_count INTEGER NOT NULL DEFAULT 0,
	first_seen_at INTEGER NOT NULL,
	last_seen_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS auth_tokens (
	user_id      TEXT PRIMARY KEY,
	token        TEXT NOT NULL,
	app_id       TEXT NOT NULL,
	issued_at    INTEGER NOT NULL,
	last_used_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS blacklisted_users (
	user_id        TEXT PRIMARY KEY,
	blacklisted_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS blacklisted_channels (
	channel_id     TEXT PRIMARY KEY,
	blacklisted_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS active_channels (
	channel_id   TEXT PRIMARY KEY,
	activated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS bot_owners (
	user_id  TEXT PRIMARY KEY,
	added_at INTEGER NOT NULL
);
`

// Init creates the schema if it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}
