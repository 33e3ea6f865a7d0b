// Package intent decides whether the bot should respond to an incoming
// message, and why.
package intent

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/tenshi-bot/tenshi/pkg/config"
)

// RandomResponseProbability is the chance of replying to a message that
// matched no explicit trigger. Roughly one in five.
const RandomResponseProbability = 0.2

// Reason explains a positive respond decision.
type Reason string

const (
	ReasonDisplayName   Reason = "display_name"
	ReasonMentioned     Reason = "mentioned"
	ReasonKeyword       Reason = "contains_keyword"
	ReasonActiveChannel Reason = "active_channel"
	ReasonRandom        Reason = "random"
)

// Message is the slice of an incoming platform event the resolver needs.
type Message struct {
	AuthorID    string
	AuthorIsBot bool
	ChannelID   string
	Body        string
	Mentions    []string
	DisplayName string
}

// Decision is the resolver's verdict. Content is the message body with
// any explicit-address prefix stripped. Suppressed marks messages that
// were blocked by policy (self-authored or blacklisted) rather than
// merely not triggering a response.
type Decision struct {
	Respond    bool
	Suppressed bool
	Reason     Reason
	Content    string
}

// Gatekeeper answers the persisted policy lookups the resolver needs.
type Gatekeeper interface {
	IsUserBlacklisted(ctx context.Context, userID string) (bool, error)
	IsChannelBlacklisted(ctx context.Context, channelID string) (bool, error)
	IsChannelActive(ctx context.Context, channelID string) (bool, error)
}

// Resolver evaluates the respond-decision chain. Blacklist checks
// short-circuit before anything else; explicit address and mentions win
// over keyword and random triggers.
type Resolver struct {
	botUserID string
	gate      Gatekeeper
	runtime   *config.Runtime
	sample    func() float64
}

// NewResolver builds a resolver. sample may be nil, in which case the
// default PRNG is used.
func NewResolver(botUserID string, gate Gatekeeper, runtime *config.Runtime, sample func() float64) *Resolver {
	if sample == nil {
		sample = rand.Float64
	}
	return &Resolver{
		botUserID: botUserID,
		gate:      gate,
		runtime:   runtime,
		sample:    sample,
	}
}

// Resolve runs the decision chain in order, first match wins.
func (r *Resolver) Resolve(ctx context.Context, msg Message) (Decision, error) {
	if msg.AuthorIsBot || msg.AuthorID == r.botUserID {
		return Decision{Suppressed: true}, nil
	}
	if blocked, err := r.gate.IsUserBlacklisted(ctx, msg.AuthorID); err != nil {
		return Decision{}, err
	} else if blocked {
		return Decision{Suppressed: true}, nil
	}
	if blocked, err := r.gate.IsChannelBlacklisted(ctx, msg.ChannelID); err != nil {
		return Decision{}, err
	} else if blocked {
		return Decision{Suppressed: true}, nil
	}

	content := msg.Body

	if msg.DisplayName != "" {
		if rest, ok := strings.CutPrefix(content, msg.DisplayName+":"); ok {
			return Decision{Respond: true, Reason: ReasonDisplayName, Content: strings.TrimSpace(rest)}, nil
		}
	}

	if slices.Contains(msg.Mentions, r.botUserID) {
		return Decision{Respond: true, Reason: ReasonMentioned, Content: content}, nil
	}

	primary, secondary := r.runtime.TriggerWords()
	lower := strings.ToLower(content)
	if (primary != "" && strings.Contains(lower, primary)) ||
		(secondary != "" && strings.Contains(lower, secondary)) {
		return Decision{Respond: true, Reason: ReasonKeyword, Content: content}, nil
	}

	if active, err := r.gate.IsChannelActive(ctx, msg.ChannelID); err != nil {
		return Decision{}, err
	} else if active {
		return Decision{Respond: true, Reason: ReasonActiveChannel, Content: content}, nil
	}

	if r.sample() < RandomResponseProbability {
		return Decision{Respond: true, Reason: ReasonRandom, Content: content}, nil
	}
	return Decision{}, nil
}
