package intent

import (
	"context"
	"testing"

	"github.com/tenshi-bot/tenshi/pkg/config"
)

type fakeGate struct {
	blacklistedUsers    map[string]bool
	blacklistedChannels map[string]bool
	activeChannels      map[string]bool

	userChecks    int
	channelChecks int
	activeChecks  int
}

func (f *fakeGate) IsUserBlacklisted(ctx context.Context, userID string) (bool, error) {
	f.userChecks++
	return f.blacklistedUsers[userID], nil
}

func (f *fakeGate) IsChannelBlacklisted(ctx context.Context, channelID string) (bool, error) {
	f.channelChecks++
	return f.blacklistedChannels[channelID], nil
}

func (f *fakeGate) IsChannelActive(ctx context.Context, channelID string) (bool, error) {
	f.activeChecks++
	return f.activeChannels[channelID], nil
}

func newTestResolver(gate *fakeGate, sample float64) *Resolver {
	return NewResolver("bot-id", gate, config.NewRuntime("gpt 5"), func() float64 { return sample })
}

func baseMessage() Message {
	return Message{
		AuthorID:    "user-1",
		ChannelID:   "chan-1",
		Body:        "just chatting",
		DisplayName: "ren",
	}
}

func TestIgnoresBotAuthors(t *testing.T) {
	gate := &fakeGate{}
	r := newTestResolver(gate, 0.99)

	msg := baseMessage()
	msg.AuthorIsBot = true
	dec, err := r.Resolve(context.Background(), msg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Respond || !dec.Suppressed {
		t.Fatalf("bot authors must be suppressed, got %+v", dec)
	}
	if gate.userChecks != 0 {
		t.Fatal("bot check must short-circuit before persistence lookups")
	}

	msg = baseMessage()
	msg.AuthorID = "bot-id"
	dec, err = r.Resolve(context.Background(), msg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Respond {
		t.Fatal("must not respond to own messages")
	}
}

func TestBlacklistShortCircuitsEverything(t *testing.T) {
	gate := &fakeGate{blacklistedUsers: map[string]bool{"user-1": true}}
	r := newTestResolver(gate, 0.0)

	msg := baseMessage()
	msg.Body = "gpt 5 hello"
	msg.Mentions = []string{"bot-id"}
	dec, err := r.Resolve(context.Background(), msg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Respond || !dec.Suppressed {
		t.Fatalf("blacklisted user must be suppressed despite mention and keyword, got %+v", dec)
	}
	if gate.activeChecks != 0 {
		t.Fatal("no further checks should run after blacklist hit")
	}
}

func TestDisplayNamePrefixWinsAndStrips(t *testing.T) {
	r := newTestResolver(&fakeGate{}, 0.99)
	msg := baseMessage()
	msg.Body = "ren: what's up"
	dec, err := r.Resolve(context.Background(), msg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !dec.Respond || dec.Reason != ReasonDisplayName {
		t.Fatalf("expected display_name decision, got %+v", dec)
	}
	if dec.Content != "what's up" {
		t.Fatalf("expected stripped content, got %q", dec.Content)
	}
}

func TestMentionBeatsKeyword(t *testing.T) {
	r := newTestResolver(&fakeGate{}, 0.99)
	msg := baseMessage()
	msg.Body = "ping gpt 5"
	msg.Mentions = []string{"someone-else", "bot-id"}
	dec, err := r.Resolve(context.Background(), msg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Reason != ReasonMentioned {
		t.Fatalf("mention must win over keyword, got %q", dec.Reason)
	}
}

func TestKeywordForms(t *testing.T) {
	tests := []struct {
		body    string
		respond bool
	}{
		{"tell GPT 5 I said hi", true},
		{"gpt5 is listening", true},
		{"gpt 4 is old news", false},
	}
	for _, tc := range tests {
		r := newTestResolver(&fakeGate{}, 0.99)
		msg := baseMessage()
		msg.Body = tc.body
		dec, err := r.Resolve(context.Background(), msg)
		if err != nil {
			t.Fatalf("resolve %q: %v", tc.body, err)
		}
		if dec.Respond != tc.respond {
			t.Fatalf("%q: respond = %v, want %v", tc.body, dec.Respond, tc.respond)
		}
		if tc.respond && dec.Reason != ReasonKeyword {
			t.Fatalf("%q: expected keyword reason, got %q", tc.body, dec.Reason)
		}
	}
}

func TestActiveChannel(t *testing.T) {
	gate := &fakeGate{activeChannels: map[string]bool{"chan-1": true}}
	r := newTestResolver(gate, 0.99)
	dec, err := r.Resolve(context.Background(), baseMessage())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Reason != ReasonActiveChannel {
		t.Fatalf("expected active_channel, got %+v", dec)
	}
}

func TestRandomSampling(t *testing.T) {
	r := newTestResolver(&fakeGate{}, 0.1)
	dec, err := r.Resolve(context.Background(), baseMessage())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !dec.Respond || dec.Reason != ReasonRandom {
		t.Fatalf("sample below threshold should respond, got %+v", dec)
	}

	r = newTestResolver(&fakeGate{}, 0.3)
	dec, err = r.Resolve(context.Background(), baseMessage())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Respond {
		t.Fatalf("sample above threshold should stay silent, got %+v", dec)
	}
}

func TestUpdatedTriggerWordApplies(t *testing.T) {
	rt := config.NewRuntime("gpt 5")
	r := NewResolver("bot-id", &fakeGate{}, rt, func() float64 { return 0.99 })
	rt.SetTriggerWord("hey tenshi")

	msg := baseMessage()
	msg.Body = "heytenshi are you there"
	dec, err := r.Resolve(context.Background(), msg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Reason != ReasonKeyword {
		t.Fatalf("expected collapsed form of new trigger to match, got %+v", dec)
	}
}
