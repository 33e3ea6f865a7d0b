package store

import (
	"context"
	"database/sql"
	"time"
)

// AuthToken is a linked account credential. Its existence is the sole
// authoritative signal that a user is authenticated.
type AuthToken struct {
	UserID     string
	Token      string
	AppID      string
	IssuedAt   int64
	LastUsedAt int64
}

// GetAuthToken fetches the user's stored token, reporting whether one exists.
func (s *Store) GetAuthToken(ctx context.Context, userID string) (*AuthToken, bool, error) {
	var tok AuthToken
	row := s.db.QueryRow(ctx,
		`SELECT user_id, token, app_id, issued_at, last_used_at
		 FROM auth_tokens WHERE user_id=$1`, userID)
	if err := row.Scan(&tok.UserID, &tok.Token, &tok.AppID, &tok.IssuedAt, &tok.LastUsedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &tok, true, nil
}

// StoreAuthToken saves or replaces the user's token.
func (s *Store) StoreAuthToken(ctx context.Context, userID, token, appID string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(ctx,
		`INSERT INTO auth_tokens (user_id, token, app_id, issued_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (user_id)
		 DO UPDATE SET token=excluded.token, app_id=excluded.app_id,
		               issued_at=excluded.issued_at, last_used_at=excluded.last_used_at`,
		userID, token, appID, now)
	return err
}

// RevokeAuthToken deletes the user's token and reports whether one was
// stored. Usage counters are deliberately left untouched.
func (s *Store) RevokeAuthToken(ctx context.Context, userID string) (bool, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id=$1`, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}
	return rows > 0, nil
}

// TouchAuthTokenLastUsed bumps the token's last-used timestamp.
func (s *Store) TouchAuthTokenLastUsed(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE auth_tokens SET last_used_at=$2 WHERE user_id=$1`,
		userID, time.Now().UnixMilli())
	return err
}
