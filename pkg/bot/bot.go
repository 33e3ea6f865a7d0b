// Package bot composes intent resolution, tier gating and response
// orchestration into the per-message entry point the platform gateway
// calls.
package bot

import (
	"context"
	"strings"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/tenshi-bot/tenshi/pkg/config"
	"github.com/tenshi-bot/tenshi/pkg/intent"
	"github.com/tenshi-bot/tenshi/pkg/provider"
	"github.com/tenshi-bot/tenshi/pkg/respond"
	"github.com/tenshi-bot/tenshi/pkg/store"
	"github.com/tenshi-bot/tenshi/pkg/tier"
)

// Apology is what users see when every provider path failed. Raw
// provider errors are never surfaced.
const Apology = "Something went wrong and tenshi is cooked"

// AuthWallMessage is the authentication prompt shown when the free
// quota is exhausted. The gateway renders it with a linking affordance.
const AuthWallMessage = `**Connect your account for unlimited access**

You've reached the limit for anonymous usage. The bot stays completely free once you link your account — tap the button below to get started.`

// Event is an incoming message as delivered by the platform gateway.
type Event struct {
	AuthorID    string
	AuthorIsBot bool
	ChannelID   string
	Body        string
	Mentions    []string
	Attachments []respond.Attachment
	DisplayName string
}

// Replier is the gateway's outbound capability.
type Replier interface {
	SendTyping(ctx context.Context, channelID string) error
	Reply(ctx context.Context, channelID, text string) error
	// PromptAuth renders text together with an account-linking
	// affordance (button, link, or whatever the platform offers).
	PromptAuth(ctx context.Context, channelID, text string) error
}

// Disposition is the terminal state a message handling run ended in.
type Disposition string

const (
	Suppressed          Disposition = "suppressed"
	Ignored             Disposition = "ignored"
	FreeTierServed      Disposition = "free_tier_served"
	AuthRequiredGated   Disposition = "auth_required_gated"
	AuthenticatedServed Disposition = "authenticated_served"
)

// Bot is the message orchestration facade.
type Bot struct {
	intents      *intent.Resolver
	tiers        *tier.Resolver
	orchestrator *respond.Orchestrator
	store        *store.Store
	runtime      *config.Runtime
	mainOwners   []string
	log          zerolog.Logger
}

// New wires the facade. mainOwners are the configured top-level owner
// ids; mention decoration around them is stripped.
func New(intents *intent.Resolver, tiers *tier.Resolver, orchestrator *respond.Orchestrator, s *store.Store, runtime *config.Runtime, mainOwners []string, log zerolog.Logger) *Bot {
	cleaned := make([]string, 0, len(mainOwners))
	for _, id := range mainOwners {
		id = strings.Trim(strings.TrimSpace(id), "<@>")
		if id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return &Bot{
		intents:      intents,
		tiers:        tiers,
		orchestrator: orchestrator,
		store:        s,
		runtime:      runtime,
		mainOwners:   cleaned,
		log:          log.With().Str("component", "bot").Logger(),
	}
}

// HandleMessage runs the full per-message state machine. Each incoming
// message is an independent unit of work; callers typically invoke this
// from its own goroutine.
func (b *Bot) HandleMessage(ctx context.Context, evt Event, r Replier) (Disposition, error) {
	log := b.log.With().
		Str("handling_id", xid.New().String()).
		Str("channel_id", evt.ChannelID).
		Logger()

	decision, err := b.intents.Resolve(ctx, intent.Message{
		AuthorID:    evt.AuthorID,
		AuthorIsBot: evt.AuthorIsBot,
		ChannelID:   evt.ChannelID,
		Body:        evt.Body,
		Mentions:    evt.Mentions,
		DisplayName: evt.DisplayName,
	})
	if err != nil {
		return Suppressed, err
	}
	if decision.Suppressed {
		return Suppressed, nil
	}
	if !decision.Respond {
		return Ignored, nil
	}

	if err := r.SendTyping(ctx, evt.ChannelID); err != nil {
		log.Debug().Err(err).Msg("Failed to send typing indicator")
	}

	displayName := evt.DisplayName
	if displayName == "" {
		displayName = evt.AuthorID
	}
	parts := respond.Assemble(decision.Content, evt.Attachments, displayName)

	tierDec, err := b.tiers.Classify(ctx, evt.AuthorID)
	if err != nil {
		return Suppressed, err
	}

	switch tierDec.State {
	case tier.StateAuthRequired:
		// The gate stays stable until the user links: no counting.
		if err := r.PromptAuth(ctx, evt.ChannelID, AuthWallMessage); err != nil {
			return AuthRequiredGated, err
		}
		b.logServed(log, decision.Reason, tierDec)
		return AuthRequiredGated, nil

	case tier.StateAuthenticated:
		cred := provider.Credential{Token: tierDec.Token.Token, AppID: tierDec.Token.AppID}
		outcome, err := b.orchestrator.Respond(ctx, evt.ChannelID, evt.AuthorID, parts, cred)
		if err != nil {
			if replyErr := r.Reply(ctx, evt.ChannelID, Apology); replyErr != nil {
				log.Error().Err(replyErr).Msg("Failed to deliver apology")
			}
			return AuthenticatedServed, err
		}
		if err := r.Reply(ctx, evt.ChannelID, outcome.Text); err != nil {
			return AuthenticatedServed, err
		}
		if err := b.store.TouchAuthTokenLastUsed(ctx, evt.AuthorID); err != nil {
			log.Warn().Err(err).Msg("Failed to touch auth token")
		}
		b.logServed(log, decision.Reason, tierDec)
		return AuthenticatedServed, nil

	default:
		// Charge the free quota before calling the provider, so an
		// induced failure still consumes a message.
		if _, err := b.store.IncrementUsageCount(ctx, evt.AuthorID); err != nil {
			return FreeTierServed, err
		}
		outcome, err := b.orchestrator.Respond(ctx, evt.ChannelID, evt.AuthorID, parts, provider.Credential{})
		if err != nil {
			if replyErr := r.Reply(ctx, evt.ChannelID, Apology); replyErr != nil {
				log.Error().Err(replyErr).Msg("Failed to deliver apology")
			}
			return FreeTierServed, err
		}
		if err := r.Reply(ctx, evt.ChannelID, outcome.Text); err != nil {
			return FreeTierServed, err
		}
		b.logServed(log, decision.Reason, tierDec)
		return FreeTierServed, nil
	}
}

func (b *Bot) logServed(log zerolog.Logger, reason intent.Reason, tierDec tier.Decision) {
	if !b.runtime.DiagnosticsEnabled() {
		return
	}
	log.Info().
		Str("reason", string(reason)).
		Str("tier", string(tierDec.State)).
		Int("usage_count", tierDec.Count).
		Msg("Served message")
}

// ClearContext empties the conversation buffer for a channel and
// reports whether one existed.
func (b *Bot) ClearContext(channelID string) bool {
	return b.orchestrator.ClearContext(channelID)
}

// SetTriggerWord updates the process-wide trigger word.
func (b *Bot) SetTriggerWord(word string) {
	b.runtime.SetTriggerWord(word)
}

// TriggerWord returns the display form of the current trigger pair.
func (b *Bot) TriggerWord() string {
	return b.runtime.TriggerWord()
}

// IsOwner reports whether a user is a configured main owner or a
// stored secondary owner.
func (b *Bot) IsOwner(ctx context.Context, userID string) (bool, error) {
	for _, id := range b.mainOwners {
		if id == userID {
			return true, nil
		}
	}
	return b.store.IsOwner(ctx, userID)
}
