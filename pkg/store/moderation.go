package store

import (
	"context"
	"database/sql"
	"time"
)

func (s *Store) existsBy(ctx context.Context, query, id string) (bool, error) {
	var one int
	row := s.db.QueryRow(ctx, query, id)
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BlacklistUser adds a user to the blacklist.
func (s *Store) BlacklistUser(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO blacklisted_users (user_id, blacklisted_at) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, time.Now().UnixMilli())
	return err
}

// WhitelistUser removes a user from the blacklist.
func (s *Store) WhitelistUser(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM blacklisted_users WHERE user_id=$1`, userID)
	return err
}

// IsUserBlacklisted reports whether a user is blacklisted.
func (s *Store) IsUserBlacklisted(ctx context.Context, userID string) (bool, error) {
	return s.existsBy(ctx, `SELECT 1 FROM blacklisted_users WHERE user_id=$1`, userID)
}

// BlacklistChannel adds a channel to the blacklist.
func (s *Store) BlacklistChannel(ctx context.Context, channelID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO blacklisted_channels (channel_id, blacklisted_at) VALUES ($1, $2)
		 ON CONFLICT (channel_id) DO NOTHING`,
		channelID, time.Now().UnixMilli())
	return err
}

// WhitelistChannel removes a channel from the blacklist.
func (s *Store) WhitelistChannel(ctx context.Context, channelID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM blacklisted_channels WHERE channel_id=$1`, channelID)
	return err
}

// IsChannelBlacklisted reports whether a channel is blacklisted.
func (s *Store) IsChannelBlacklisted(ctx context.Context, channelID string) (bool, error) {
	return s.existsBy(ctx, `SELECT 1 FROM blacklisted_channels WHERE channel_id=$1`, channelID)
}

// ActivateChannel flags a channel as always-respond.
func (s *Store) ActivateChannel(ctx context.Context, channelID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO active_channels (channel_id, activated_at) VALUES ($1, $2)
		 ON CONFLICT (channel_id) DO NOTHING`,
		channelID, time.Now().UnixMilli())
	return err
}

// DeactivateChannel clears the always-respond flag.
func (s *Store) DeactivateChannel(ctx context.Context, channelID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM active_channels WHERE channel_id=$1`, channelID)
	return err
}

// IsChannelActive reports whether a channel is in always-respond mode.
func (s *Store) IsChannelActive(ctx context.Context, channelID string) (bool, error) {
	return s.existsBy(ctx, `SELECT 1 FROM active_channels WHERE channel_id=$1`, channelID)
}

// AddOwner registers a secondary owner.
func (s *Store) AddOwner(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO bot_owners (user_id, added_at) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, time.Now().UnixMilli())
	return err
}

// RemoveOwner unregisters a secondary owner.
func (s *Store) RemoveOwner(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM bot_owners WHERE user_id=$1`, userID)
	return err
}

// IsOwner reports whether a user is a stored secondary owner.
func (s *Store) IsOwner(ctx context.Context, userID string) (bool, error) {
	return s.existsBy(ctx, `SELECT 1 FROM bot_owners WHERE user_id=$1`, userID)
}

// ListOwners returns all stored secondary owner ids.
func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM bot_owners ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}
