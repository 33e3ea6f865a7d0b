// Package tier classifies callers into the usage tiers that gate AI
// generation: anonymous free quota, mandatory account linking, and
// unlimited authenticated use.
package tier

import (
	"context"
	"errors"

	"github.com/tenshi-bot/tenshi/pkg/store"
)

// FreeMessageLimit is the number of messages an anonymous user may
// consume before linking becomes mandatory.
const FreeMessageLimit = 5

// ErrAuthenticatedReset is returned when a usage reset is requested for
// a user who currently holds a valid token.
var ErrAuthenticatedReset = errors.New("cannot reset usage while authenticated")

// State is a caller's usage-rights classification.
type State string

const (
	StateFreeTier      State = "free_tier"
	StateAuthRequired  State = "auth_required"
	StateAuthenticated State = "authenticated"
)

// Decision is an ephemeral per-message classification, derived fresh
// from the persisted counter and token on every call.
type Decision struct {
	State     State
	Count     int
	Remaining int
	Token     *store.AuthToken
}

// Resolver reads the persistence collaborator to classify users.
type Resolver struct {
	store *store.Store
}

// NewResolver builds a resolver over the given store.
func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// Classify determines the caller's tier. A stored token wins
// unconditionally; otherwise the counter decides. Classify never
// increments the counter — consuming a free-tier generation is the
// caller's responsibility.
func (r *Resolver) Classify(ctx context.Context, userID string) (Decision, error) {
	token, found, err := r.store.GetAuthToken(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if found {
		return Decision{State: StateAuthenticated, Token: token}, nil
	}
	count, err := r.store.GetUsageCount(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if count >= FreeMessageLimit {
		return Decision{State: StateAuthRequired, Count: count}, nil
	}
	return Decision{State: StateFreeTier, Count: count, Remaining: FreeMessageLimit - count}, nil
}

// Revoke deletes the user's token, reporting whether one existed.
// The usage counter is left as-is: the user returns to whatever
// anonymous standing they had before linking.
func (r *Resolver) Revoke(ctx context.Context, userID string) (bool, error) {
	return r.store.RevokeAuthToken(ctx, userID)
}

// Reset zeroes the user's usage counter. Rejected while the user holds
// a token; an authenticated user has nothing to reset.
func (r *Resolver) Reset(ctx context.Context, userID string) error {
	_, found, err := r.store.GetAuthToken(ctx, userID)
	if err != nil {
		return err
	}
	if found {
		return ErrAuthenticatedReset
	}
	return r.store.ResetUsageCount(ctx, userID)
}
