package provider

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tenshi-bot/tenshi/pkg/config"
)

// Shapes is the primary backend. It fronts the two interchangeable
// client implementations: the active one (a runtime configuration
// choice) handles the request, and transient failures are retried once
// on the sibling implementation. Authorization failures are never
// retried on the sibling; the credential is just as invalid there.
type Shapes struct {
	sdk    Client
	raw    Client
	active func() config.ClientImpl
	log    zerolog.Logger
}

// NewShapes combines the SDK and raw HTTP implementations behind the
// runtime implementation selector.
func NewShapes(sdk, raw Client, active func() config.ClientImpl, log zerolog.Logger) *Shapes {
	return &Shapes{
		sdk:    sdk,
		raw:    raw,
		active: active,
		log:    log.With().Str("provider", "shapes").Logger(),
	}
}

func (s *Shapes) Name() string {
	return "shapes"
}

func (s *Shapes) clients() (first, second Client) {
	if s.active() == config.ClientRaw {
		return s.raw, s.sdk
	}
	return s.sdk, s.raw
}

func (s *Shapes) Generate(ctx context.Context, req Request, cred Credential) (string, error) {
	first, second := s.clients()
	text, err := first.Generate(ctx, req, cred)
	if err == nil {
		return text, nil
	}
	if IsAuthorization(err) {
		return "", err
	}
	s.log.Debug().Err(err).
		Str("failed_client", first.Name()).
		Str("retry_client", second.Name()).
		Msg("Retrying on sibling shapes client")
	text, err = second.Generate(ctx, req, cred)
	if err != nil {
		return "", err
	}
	return text, nil
}
