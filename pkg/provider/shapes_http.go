package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.mau.fi/util/random"

	"github.com/tenshi-bot/tenshi/pkg/convctx"
	"github.com/tenshi-bot/tenshi/pkg/httputil"
)

// ShapesHTTP talks to the Shapes-compatible API over plain HTTP.
// Behaviourally identical to ShapesSDK; which one is active is a
// runtime configuration choice.
type ShapesHTTP struct {
	httpc   *http.Client
	apiKey  string
	baseURL string
	model   string
	log     zerolog.Logger
}

// NewShapesHTTP builds the raw HTTP client.
func NewShapesHTTP(httpc *http.Client, apiKey, baseURL, username string, log zerolog.Logger) *ShapesHTTP {
	return &ShapesHTTP{
		httpc:   httpc,
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   "shapesinc/" + username,
		log:     log.With().Str("provider", "shapes-http").Logger(),
	}
}

func (s *ShapesHTTP) Name() string {
	return "shapes-http"
}

type wirePart struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL *wireURL `json:"image_url,omitempty"`
	AudioURL *wireURL `json:"audio_url,omitempty"`
}

type wireURL struct {
	URL string `json:"url"`
}

type wireMessage struct {
	Role    string     `json:"role"`
	Content []wirePart `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *ShapesHTTP) Generate(ctx context.Context, req Request, cred Credential) (string, error) {
	parts := toWireParts(req.latestUserParts())
	if len(parts) == 0 {
		return "", newError(s.Name(), ClassTransient, fmt.Errorf("request has no content parts"))
	}

	headers := map[string]string{
		"Authorization": "Bearer " + s.apiKey,
		"X-User-Id":     "discord-user-" + req.CallerID,
		"X-Channel-Id":  "discord-channel-" + req.ConversationID,
		"x-request-id":  "tns_" + random.String(12),
	}
	if !cred.IsZero() {
		headers["Authorization"] = "Bearer " + cred.Token
		headers["X-App-ID"] = cred.AppID
	}

	payload := completionRequest{
		Model:    s.model,
		Messages: []wireMessage{{Role: "user", Content: parts}},
	}
	body, status, err := httputil.PostJSON(ctx, s.httpc, s.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		if status == 0 {
			return "", newError(s.Name(), ClassTransient, err)
		}
		return "", newError(s.Name(), classifyStatus(status), err)
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", newError(s.Name(), ClassTransient, fmt.Errorf("decoding completion response: %w", err))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", newError(s.Name(), ClassTransient, fmt.Errorf("empty completion response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func toWireParts(parts []convctx.ContentPart) []wirePart {
	result := make([]wirePart, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case convctx.ContentTypeText:
			if part.Text != "" {
				result = append(result, wirePart{Type: "text", Text: part.Text})
			}
		case convctx.ContentTypeImage:
			if part.ImageURL != "" {
				result = append(result, wirePart{Type: "image_url", ImageURL: &wireURL{URL: part.ImageURL}})
			}
		case convctx.ContentTypeAudio:
			if part.AudioURL != "" {
				result = append(result, wirePart{Type: "audio_url", AudioURL: &wireURL{URL: part.AudioURL}})
			}
		}
	}
	return result
}
