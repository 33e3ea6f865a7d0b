package tier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tenshi-bot/tenshi/pkg/httputil"
	"github.com/tenshi-bot/tenshi/pkg/store"
)

// Linker exchanges one-time linking codes for per-user bearer tokens
// against the provider's auth endpoint and persists the result.
type Linker struct {
	httpc       *http.Client
	authBaseURL string
	appID       string
	store       *store.Store
	log         zerolog.Logger
}

// NewLinker validates the configured app id and builds the linker.
func NewLinker(httpc *http.Client, authBaseURL, appID string, s *store.Store, log zerolog.Logger) (*Linker, error) {
	if _, err := uuid.Parse(appID); err != nil {
		return nil, fmt.Errorf("invalid app id %q: %w", appID, err)
	}
	return &Linker{
		httpc:       httpc,
		authBaseURL: authBaseURL,
		appID:       appID,
		store:       s,
		log:         log.With().Str("component", "linker").Logger(),
	}, nil
}

type nonceRequest struct {
	AppID string `json:"app_id"`
	Code  string `json:"code"`
}

type nonceResponse struct {
	AuthToken string `json:"auth_token"`
	Message   string `json:"message"`
}

// Exchange trades a one-time code for a bearer token and stores it for
// the user. On success the user is authenticated from the next message on.
func (l *Linker) Exchange(ctx context.Context, userID, oneTimeCode string) error {
	if oneTimeCode == "" {
		return fmt.Errorf("missing one-time code")
	}

	payload := nonceRequest{AppID: l.appID, Code: oneTimeCode}
	body, status, err := httputil.PostJSON(ctx, l.httpc, l.authBaseURL+"/nonce", nil, payload)
	if err != nil {
		switch status {
		case http.StatusBadRequest:
			return fmt.Errorf("invalid app id or one-time code")
		case http.StatusUnauthorized:
			return fmt.Errorf("unauthorized code exchange")
		case http.StatusTooManyRequests:
			return fmt.Errorf("too many linking attempts, try again later")
		default:
			return fmt.Errorf("exchanging linking code: %w", err)
		}
	}

	var resp nonceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decoding auth response: %w", err)
	}
	if resp.AuthToken == "" {
		if resp.Message != "" {
			return fmt.Errorf("code exchange rejected: %s", resp.Message)
		}
		return fmt.Errorf("auth endpoint returned no token")
	}

	if err := l.store.StoreAuthToken(ctx, userID, resp.AuthToken, l.appID); err != nil {
		return fmt.Errorf("storing auth token: %w", err)
	}
	l.log.Info().Str("user_id", userID).Msg("Linked user account")
	return nil
}
