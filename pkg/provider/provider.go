// Package provider wraps the AI backends the bot can generate replies
// with: the Shapes-compatible primary (two interchangeable client
// implementations) and the Gemini fallback.
package provider

import (
	"context"

	"github.com/tenshi-bot/tenshi/pkg/convctx"
)

// Credential is the authentication presented to a backend. A zero
// Credential makes the client fall back to the bot's shared API key;
// a non-zero one attributes the call to the user's linked account.
type Credential struct {
	Token string
	AppID string
}

// IsZero reports whether no per-user credential is set.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// Request is a single generation request. Turns is the local
// conversation context in order, ending with the user turn that
// triggered the request. Backends with server-side memory only read
// the final turn; the fallback replays recent turns.
type Request struct {
	ConversationID string
	CallerID       string
	Turns          []convctx.Turn
}

// latestUserParts returns the content parts of the newest user turn.
func (r *Request) latestUserParts() []convctx.ContentPart {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == convctx.RoleUser {
			return r.Turns[i].Content
		}
	}
	return nil
}

// Client is a single backend's call contract: request in, reply text
// out, or a classified *Error.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request, cred Credential) (string, error)
}
