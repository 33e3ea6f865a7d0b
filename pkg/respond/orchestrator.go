package respond

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tenshi-bot/tenshi/pkg/config"
	"github.com/tenshi-bot/tenshi/pkg/convctx"
	"github.com/tenshi-bot/tenshi/pkg/provider"
)

// Outcome is the result of a successful orchestration.
type Outcome struct {
	Text     string
	Provider string
}

// Orchestrator appends the incoming turn to the conversation context,
// tries the primary backend and, for transient failures only, the
// fallback backend. Successful replies are appended back into context.
//
// Diagnostics gating: transient primary failures are only logged when
// the injected diagnostics query says so; authorization failures and
// total failures always log, since they indicate credential or
// service-wide problems.
type Orchestrator struct {
	contexts    *convctx.Store
	shapes      provider.Client
	gemini      provider.Client
	primary     func() config.Backend
	diagnostics func() bool
	log         zerolog.Logger
}

// NewOrchestrator wires the orchestrator. primary and diagnostics are
// queried per call so runtime reconfiguration applies immediately.
func NewOrchestrator(contexts *convctx.Store, shapes, gemini provider.Client, primary func() config.Backend, diagnostics func() bool, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		contexts:    contexts,
		shapes:      shapes,
		gemini:      gemini,
		primary:     primary,
		diagnostics: diagnostics,
		log:         log.With().Str("component", "orchestrator").Logger(),
	}
}

func (o *Orchestrator) backends() (first, second provider.Client) {
	if o.primary() == config.BackendGemini {
		return o.gemini, o.shapes
	}
	return o.shapes, o.gemini
}

// Respond generates a reply for the given conversation. The caller has
// already settled tier accounting; cred selects whose credential the
// providers see. The user turn is recorded before the provider call so
// the fallback path replays it too.
func (o *Orchestrator) Respond(ctx context.Context, conversationID, callerID string, parts []convctx.ContentPart, cred provider.Credential) (Outcome, error) {
	o.contexts.Append(conversationID, convctx.UserTurn(callerID, parts))

	req := provider.Request{
		ConversationID: conversationID,
		CallerID:       callerID,
		Turns:          o.contexts.Snapshot(conversationID),
	}

	first, second := o.backends()
	text, err := first.Generate(ctx, req, cred)
	if err != nil {
		if provider.IsAuthorization(err) {
			o.log.Error().Err(err).
				Str("backend", first.Name()).
				Str("conversation_id", conversationID).
				Msg("Provider rejected credential")
			return Outcome{}, err
		}
		if o.diagnostics() {
			o.log.Warn().Err(err).
				Str("backend", first.Name()).
				Str("fallback", second.Name()).
				Msg("Primary backend failed, falling back")
		}
		text, err = second.Generate(ctx, req, cred)
		if err != nil {
			o.log.Error().Err(err).
				Str("conversation_id", conversationID).
				Msg("All provider backends failed")
			return Outcome{}, err
		}
		o.contexts.Append(conversationID, convctx.AssistantTurn(text))
		return Outcome{Text: text, Provider: second.Name()}, nil
	}

	o.contexts.Append(conversationID, convctx.AssistantTurn(text))
	return Outcome{Text: text, Provider: first.Name()}, nil
}

// ClearContext empties the conversation buffer, reporting whether one
// existed.
func (o *Orchestrator) ClearContext(conversationID string) bool {
	return o.contexts.Clear(conversationID)
}
