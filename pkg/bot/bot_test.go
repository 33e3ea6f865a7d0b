package bot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"

	"github.com/tenshi-bot/tenshi/pkg/config"
	"github.com/tenshi-bot/tenshi/pkg/convctx"
	"github.com/tenshi-bot/tenshi/pkg/intent"
	"github.com/tenshi-bot/tenshi/pkg/provider"
	"github.com/tenshi-bot/tenshi/pkg/respond"
	"github.com/tenshi-bot/tenshi/pkg/store"
	"github.com/tenshi-bot/tenshi/pkg/tier"
)

const botUserID = "bot-1"

type fakeBackend struct {
	name     string
	text     string
	err      error
	calls    int
	lastCred provider.Credential
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Generate(ctx context.Context, req provider.Request, cred provider.Credential) (string, error) {
	f.calls++
	f.lastCred = cred
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeReplier struct {
	typing  int
	replies []string
	prompts []string
}

func (f *fakeReplier) SendTyping(ctx context.Context, channelID string) error {
	f.typing++
	return nil
}

func (f *fakeReplier) Reply(ctx context.Context, channelID, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeReplier) PromptAuth(ctx context.Context, channelID, text string) error {
	f.prompts = append(f.prompts, text)
	return nil
}

func setupBot(t *testing.T, shapes, gemini provider.Client) (*Bot, *store.Store) {
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

	runtime := config.NewRuntime("gpt 5")
	intents := intent.NewResolver(botUserID, s, runtime, func() float64 { return 0.99 })
	tiers := tier.NewResolver(s)
	orchestrator := respond.NewOrchestrator(convctx.NewStore(0), shapes, gemini,
		runtime.PrimaryBackend, runtime.DiagnosticsEnabled, zerolog.Nop())
	b := New(intents, tiers, orchestrator, s, runtime, []string{"<@owner-1>"}, zerolog.Nop())
	return b, s
}

func keywordEvent(author, body string) Event {
	return Event{
		AuthorID:    author,
		ChannelID:   "chan",
		Body:        body,
		DisplayName: "ren",
	}
}

func TestBotAuthorSuppressed(t *testing.T) {
	shapes := &fakeBackend{name: "shapes", text: "hi"}
	b, _ := setupBot(t, shapes, &fakeBackend{name: "gemini"})
	r := &fakeReplier{}

	evt := keywordEvent(botUserID, "gpt 5 hello")
	evt.AuthorIsBot = true
	disp, err := b.HandleMessage(context.Background(), evt, r)
	if err != nil || disp != Suppressed {
		t.Fatalf("expected suppressed, got %v / %v", disp, err)
	}
	if r.typing != 0 || shapes.calls != 0 {
		t.Fatal("suppressed messages must not reach downstream stages")
	}
}

func TestUnaddressedMessageIgnored(t *testing.T) {
	b, s := setupBot(t, &fakeBackend{name: "shapes", text: "hi"}, &fakeBackend{name: "gemini"})
	r := &fakeReplier{}

	disp, err := b.HandleMessage(context.Background(), keywordEvent("user-1", "just chatting"), r)
	if err != nil || disp != Ignored {
		t.Fatalf("expected ignored, got %v / %v", disp, err)
	}
	count, err := s.GetUsageCount(context.Background(), "user-1")
	if err != nil || count != 0 {
		t.Fatalf("ignored messages must not be charged, count=%d err=%v", count, err)
	}
}

func TestFreeTierServed(t *testing.T) {
	shapes := &fakeBackend{name: "shapes", text: "sure thing"}
	b, s := setupBot(t, shapes, &fakeBackend{name: "gemini"})
	r := &fakeReplier{}

	disp, err := b.HandleMessage(context.Background(), keywordEvent("user-1", "gpt 5 hello"), r)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if disp != FreeTierServed {
		t.Fatalf("expected free tier served, got %v", disp)
	}
	if r.typing != 1 {
		t.Fatalf("expected one typing indicator, got %d", r.typing)
	}
	if len(r.replies) != 1 || r.replies[0] != "sure thing" {
		t.Fatalf("unexpected replies: %v", r.replies)
	}
	if !shapes.lastCred.IsZero() {
		t.Fatal("free tier calls must use the shared credential")
	}
	count, _ := s.GetUsageCount(context.Background(), "user-1")
	if count != 1 {
		t.Fatalf("expected one charged message, got %d", count)
	}
}

func TestFreeTierChargedEvenOnFailure(t *testing.T) {
	shapes := &fakeBackend{name: "shapes", err: &provider.Error{
		Class: provider.ClassTransient, Backend: "shapes", Err: fmt.Errorf("boom"),
	}}
	gemini := &fakeBackend{name: "gemini", err: &provider.Error{
		Class: provider.ClassTransient, Backend: "gemini", Err: fmt.Errorf("boom"),
	}}
	b, s := setupBot(t, shapes, gemini)
	r := &fakeReplier{}

	disp, err := b.HandleMessage(context.Background(), keywordEvent("user-1", "gpt 5 hello"), r)
	if err == nil {
		t.Fatal("expected provider failure to surface")
	}
	if disp != FreeTierServed {
		t.Fatalf("expected free tier disposition, got %v", disp)
	}
	if len(r.replies) != 1 || r.replies[0] != Apology {
		t.Fatalf("expected apology reply, got %v", r.replies)
	}
	count, _ := s.GetUsageCount(context.Background(), "user-1")
	if count != 1 {
		t.Fatalf("failed responses still consume quota, got count %d", count)
	}
}

func TestAuthWallAfterQuotaExhausted(t *testing.T) {
	shapes := &fakeBackend{name: "shapes", text: "hi"}
	b, s := setupBot(t, shapes, &fakeBackend{name: "gemini"})
	ctx := context.Background()
	for i := 0; i < tier.FreeMessageLimit; i++ {
		if _, err := s.IncrementUsageCount(ctx, "user-1"); err != nil {
			t.Fatalf("seed usage: %v", err)
		}
	}

	r := &fakeReplier{}
	for i := 0; i < 3; i++ {
		disp, err := b.HandleMessage(ctx, keywordEvent("user-1", "gpt 5 hello"), r)
		if err != nil || disp != AuthRequiredGated {
			t.Fatalf("attempt %d: expected gated, got %v / %v", i, disp, err)
		}
	}
	if len(r.prompts) != 3 {
		t.Fatalf("expected three auth prompts, got %d", len(r.prompts))
	}
	if !strings.Contains(r.prompts[0], "link your account") {
		t.Fatalf("unexpected prompt text: %q", r.prompts[0])
	}
	if shapes.calls != 0 {
		t.Fatal("gated messages must not reach the provider")
	}
	count, _ := s.GetUsageCount(ctx, "user-1")
	if count != tier.FreeMessageLimit {
		t.Fatalf("gate must leave the counter stable, got %d", count)
	}
}

func TestAuthenticatedBypassesQuota(t *testing.T) {
	shapes := &fakeBackend{name: "shapes", text: "welcome back"}
	b, s := setupBot(t, shapes, &fakeBackend{name: "gemini"})
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, err := s.IncrementUsageCount(ctx, "user-1"); err != nil {
			t.Fatalf("seed usage: %v", err)
		}
	}
	if err := s.StoreAuthToken(ctx, "user-1", "tok-abc", "app-1"); err != nil {
		t.Fatalf("store token: %v", err)
	}

	r := &fakeReplier{}
	disp, err := b.HandleMessage(ctx, keywordEvent("user-1", "gpt 5 hello"), r)
	if err != nil || disp != AuthenticatedServed {
		t.Fatalf("expected authenticated served, got %v / %v", disp, err)
	}
	if shapes.lastCred.Token != "tok-abc" || shapes.lastCred.AppID != "app-1" {
		t.Fatalf("expected per-user credential, got %+v", shapes.lastCred)
	}
	count, _ := s.GetUsageCount(ctx, "user-1")
	if count != 20 {
		t.Fatalf("authenticated traffic must not be charged, got %d", count)
	}
}

func TestOwnerChecks(t *testing.T) {
	b, s := setupBot(t, &fakeBackend{name: "shapes"}, &fakeBackend{name: "gemini"})
	ctx := context.Background()

	ok, err := b.IsOwner(ctx, "owner-1")
	if err != nil || !ok {
		t.Fatalf("configured owner with mention decoration must match, got %v / %v", ok, err)
	}
	ok, err = b.IsOwner(ctx, "user-1")
	if err != nil || ok {
		t.Fatalf("random user must not be owner, got %v / %v", ok, err)
	}
	if err := s.AddOwner(ctx, "user-1"); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	ok, err = b.IsOwner(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("stored owner must match, got %v / %v", ok, err)
	}
}

func TestTriggerWordRoundTrip(t *testing.T) {
	b, _ := setupBot(t, &fakeBackend{name: "shapes", text: "yo"}, &fakeBackend{name: "gemini"})
	r := &fakeReplier{}

	b.SetTriggerWord("Hey Tenshi")
	if got := b.TriggerWord(); got != "hey tenshi | heytenshi" {
		t.Fatalf("unexpected trigger display: %q", got)
	}
	disp, err := b.HandleMessage(context.Background(), keywordEvent("user-1", "heytenshi what's up"), r)
	if err != nil || disp != FreeTierServed {
		t.Fatalf("new trigger word must address the bot, got %v / %v", disp, err)
	}
}

func TestClearContext(t *testing.T) {
	b, _ := setupBot(t, &fakeBackend{name: "shapes", text: "yo"}, &fakeBackend{name: "gemini"})
	if b.ClearContext("chan") {
		t.Fatal("unknown channel must report no context")
	}
	r := &fakeReplier{}
	if _, err := b.HandleMessage(context.Background(), keywordEvent("user-1", "gpt 5 hi"), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !b.ClearContext("chan") {
		t.Fatal("expected existing context to be cleared")
	}
}
