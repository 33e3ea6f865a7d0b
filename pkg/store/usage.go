package store

import (
	"context"
	"database/sql"
	"time"
)

// GetUsageCount returns the persisted message count for a user, zero if
// the user has never been counted.
func (s *Store) GetUsageCount(ctx context.Context, userID string) (int, error) {
	var count int
	row := s.db.QueryRow(ctx,
		`SELECT message_count FROM usage_counts WHERE user_id=$1`, userID)
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// IncrementUsageCount bumps the user's message count by one atomically
// and returns the new count. The row is created on first use.
func (s *Store) IncrementUsageCount(ctx context.Context, userID string) (int, error) {
	now := time.Now().UnixMilli()
	var count int
	row := s.db.QueryRow(ctx,
		`INSERT INTO usage_counts (user_id, message_count, first_seen_at, last_seen_at)
		 VALUES ($1, 1, $2, $2)
		 ON CONFLICT (user_id)
		 DO UPDATE SET message_count=message_count+1, last_seen_at=$2
		 RETURNING message_count`,
		userID, now)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ResetUsageCount zeroes the user's message count. Rows that do not
// exist are left alone; the count is already zero for them.
func (s *Store) ResetUsageCount(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE usage_counts SET message_count=0, last_seen_at=$2 WHERE user_id=$1`,
		userID, time.Now().UnixMilli())
	return err
}
