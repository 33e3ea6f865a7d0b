package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/tenshi-bot/tenshi/pkg/convctx"
	"github.com/tenshi-bot/tenshi/pkg/httputil"
)

// geminiContextTurns is how many recent turns are replayed to Gemini,
// which has no server-side memory for us.
const geminiContextTurns = 5

// Gemini is the fallback backend. Per-user Shapes credentials do not
// apply here; calls always use the bot's Gemini API key.
type Gemini struct {
	httpc        *http.Client
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	log          zerolog.Logger
}

// NewGemini builds the Gemini client.
func NewGemini(httpc *http.Client, apiKey, baseURL, model, systemPrompt string, log zerolog.Logger) *Gemini {
	return &Gemini{
		httpc:        httpc,
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		systemPrompt: systemPrompt,
		log:          log.With().Str("provider", "gemini").Logger(),
	}
}

func (g *Gemini) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Generate(ctx context.Context, req Request, _ Credential) (string, error) {
	if g.apiKey == "" {
		return "", newError(g.Name(), ClassTransient, fmt.Errorf("gemini API key not configured"))
	}

	payload := geminiRequest{Contents: g.buildContents(req.Turns)}
	payload.GenerationConfig.Temperature = 0.9
	payload.GenerationConfig.MaxOutputTokens = 200

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))
	body, status, err := httputil.PostJSON(ctx, g.httpc, endpoint, nil, payload)
	if err != nil {
		if status == 0 {
			return "", newError(g.Name(), ClassTransient, err)
		}
		return "", newError(g.Name(), classifyStatus(status), err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", newError(g.Name(), ClassTransient, fmt.Errorf("decoding gemini response: %w", err))
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 ||
		resp.Candidates[0].Content.Parts[0].Text == "" {
		return "", newError(g.Name(), ClassTransient, fmt.Errorf("empty gemini response"))
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// buildContents primes the persona, then replays the most recent turns.
// Only text is forwarded; Gemini gets no attachment URLs.
func (g *Gemini) buildContents(turns []convctx.Turn) []geminiContent {
	contents := []geminiContent{
		{Role: "user", Parts: []geminiPart{{Text: g.systemPrompt}}},
		{Role: "model", Parts: []geminiPart{{Text: "Understood, I will respond in that persona."}}},
	}
	if len(turns) > geminiContextTurns {
		turns = turns[len(turns)-geminiContextTurns:]
	}
	for _, turn := range turns {
		text := turn.Text()
		if text == "" {
			continue
		}
		role := "user"
		if turn.Role == convctx.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: text}}})
	}
	return contents
}
