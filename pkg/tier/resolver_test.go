package tier

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/util/dbutil"

	"github.com/tenshi-bot/tenshi/pkg/store"
)

func setupResolver(t *testing.T) (*Resolver, *store.Store) {
	t.Helper()
	raw, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		t.Fatalf("wrap db: %v", err)
	}
	s := store.New(db)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return NewResolver(s), s
}

func TestClassifyFreeTierCountdown(t *testing.T) {
	ctx := context.Background()
	r, s := setupResolver(t)

	for consumed := 0; consumed < FreeMessageLimit; consumed++ {
		dec, err := r.Classify(ctx, "user1")
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if dec.State != StateFreeTier {
			t.Fatalf("after %d messages expected free tier, got %q", consumed, dec.State)
		}
		if dec.Remaining != FreeMessageLimit-consumed {
			t.Fatalf("after %d messages expected remaining %d, got %d",
				consumed, FreeMessageLimit-consumed, dec.Remaining)
		}
		if _, err := s.IncrementUsageCount(ctx, "user1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	dec, err := r.Classify(ctx, "user1")
	if err != nil {
		t.Fatalf("classify at limit: %v", err)
	}
	if dec.State != StateAuthRequired || dec.Count != FreeMessageLimit {
		t.Fatalf("expected auth_required at limit, got %+v", dec)
	}
}

func TestAuthRequiredIsStable(t *testing.T) {
	ctx := context.Background()
	r, s := setupResolver(t)
	for i := 0; i < FreeMessageLimit; i++ {
		if _, err := s.IncrementUsageCount(ctx, "user1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		dec, err := r.Classify(ctx, "user1")
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if dec.State != StateAuthRequired {
			t.Fatalf("expected auth_required, got %q", dec.State)
		}
	}
	count, err := s.GetUsageCount(ctx, "user1")
	if err != nil {
		t.Fatalf("get count: %v", err)
	}
	if count != FreeMessageLimit {
		t.Fatalf("classification must not increment the gated counter, got %d", count)
	}
}

func TestTokenOverridesCount(t *testing.T) {
	ctx := context.Background()
	r, s := setupResolver(t)
	for i := 0; i < 20; i++ {
		if _, err := s.IncrementUsageCount(ctx, "user1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := s.StoreAuthToken(ctx, "user1", "tok", "app"); err != nil {
		t.Fatalf("store token: %v", err)
	}
	dec, err := r.Classify(ctx, "user1")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if dec.State != StateAuthenticated {
		t.Fatalf("token must override count, got %q", dec.State)
	}
	if dec.Token == nil || dec.Token.Token != "tok" {
		t.Fatalf("expected token in decision, got %+v", dec.Token)
	}
}

func TestRevokeReturnsToCountBasedGating(t *testing.T) {
	ctx := context.Background()
	r, s := setupResolver(t)
	for i := 0; i < 7; i++ {
		if _, err := s.IncrementUsageCount(ctx, "user1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := s.StoreAuthToken(ctx, "user1", "tok", "app"); err != nil {
		t.Fatalf("store token: %v", err)
	}

	revoked, err := r.Revoke(ctx, "user1")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !revoked {
		t.Fatal("expected revoke to report a removed token")
	}

	dec, err := r.Classify(ctx, "user1")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if dec.State != StateAuthRequired || dec.Count != 7 {
		t.Fatalf("after revoke at count 7 expected auth_required(7), got %+v", dec)
	}
}

func TestResetRejectedWhileAuthenticated(t *testing.T) {
	ctx := context.Background()
	r, s := setupResolver(t)
	for i := 0; i < 3; i++ {
		if _, err := s.IncrementUsageCount(ctx, "user1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := s.StoreAuthToken(ctx, "user1", "tok", "app"); err != nil {
		t.Fatalf("store token: %v", err)
	}

	if err := r.Reset(ctx, "user1"); !errors.Is(err, ErrAuthenticatedReset) {
		t.Fatalf("expected ErrAuthenticatedReset, got %v", err)
	}
	count, err := s.GetUsageCount(ctx, "user1")
	if err != nil {
		t.Fatalf("get count: %v", err)
	}
	if count != 3 {
		t.Fatalf("rejected reset must not change state, got %d", count)
	}

	if _, err := r.Revoke(ctx, "user1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.Reset(ctx, "user1"); err != nil {
		t.Fatalf("reset after revoke: %v", err)
	}
	count, err = s.GetUsageCount(ctx, "user1")
	if err != nil {
		t.Fatalf("get count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zeroed count, got %d", count)
	}
}
