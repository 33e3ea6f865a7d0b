package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/rs/zerolog"

	"github.com/tenshi-bot/tenshi/pkg/convctx"
)

// ShapesSDK talks to the Shapes-compatible API through the OpenAI SDK.
// The Shapes API keeps conversation memory server-side keyed by the
// identity headers, so only the newest user turn is sent.
type ShapesSDK struct {
	client openai.Client
	model  string
	log    zerolog.Logger
}

// NewShapesSDK builds the SDK client against the given base URL using
// the bot's shared API key. Per-user credentials are applied per request.
func NewShapesSDK(apiKey, baseURL, username string, log zerolog.Logger) *ShapesSDK {
	return &ShapesSDK{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model: "shapesinc/" + username,
		log:   log.With().Str("provider", "shapes-sdk").Logger(),
	}
}

func (s *ShapesSDK) Name() string {
	return "shapes-sdk"
}

func (s *ShapesSDK) Generate(ctx context.Context, req Request, cred Credential) (string, error) {
	parts := toShapesContentParts(req.latestUserParts())
	if len(parts) == 0 {
		return "", newError(s.Name(), ClassTransient, fmt.Errorf("request has no content parts"))
	}

	opts := []option.RequestOption{
		option.WithHeader("X-User-Id", "discord-user-"+req.CallerID),
		option.WithHeader("X-Channel-Id", "discord-channel-"+req.ConversationID),
	}
	if !cred.IsZero() {
		opts = append(opts,
			option.WithAPIKey(cred.Token),
			option.WithHeader("X-App-ID", cred.AppID),
		)
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		}},
	}, opts...)
	if err != nil {
		return "", newError(s.Name(), classifySDKError(err), err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", newError(s.Name(), ClassTransient, fmt.Errorf("empty completion response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// toShapesContentParts converts stored content parts to the wire format
// the Shapes API accepts. Audio parts use the non-standard audio_url
// part type, which the SDK union does not model directly.
func toShapesContentParts(parts []convctx.ContentPart) []openai.ChatCompletionContentPartUnionParam {
	result := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case convctx.ContentTypeText:
			if part.Text == "" {
				continue
			}
			result = append(result, openai.ChatCompletionContentPartUnionParam{
				OfText: &openai.ChatCompletionContentPartTextParam{Text: part.Text},
			})
		case convctx.ContentTypeImage:
			if part.ImageURL == "" {
				continue
			}
			result = append(result, openai.ChatCompletionContentPartUnionParam{
				OfImageURL: &openai.ChatCompletionContentPartImageParam{
					ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: part.ImageURL},
				},
			})
		case convctx.ContentTypeAudio:
			if part.AudioURL == "" {
				continue
			}
			result = append(result, param.Override[openai.ChatCompletionContentPartUnionParam](map[string]any{
				"type": "audio_url",
				"audio_url": map[string]any{
					"url": part.AudioURL,
				},
			}))
		}
	}
	return result
}
