// Package convctx owns the per-conversation rolling buffer of prior turns
// that is replayed to AI providers which need local context.
package convctx

import (
	"strings"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPartType identifies the type of content in a turn.
type ContentPartType string

const (
	ContentTypeText  ContentPartType = "text"
	ContentTypeImage ContentPartType = "image"
	ContentTypeAudio ContentPartType = "audio"
)

// ContentPart is a single typed fragment of a multimodal message.
// Exactly one of Text, ImageURL or AudioURL is meaningful, selected by Type.
type ContentPart struct {
	Type     ContentPartType
	Text     string
	ImageURL string
	AudioURL string
}

// Turn is one stored message. AuthorID is only set for user turns.
type Turn struct {
	Role     Role
	Content  []ContentPart
	AuthorID string
	At       time.Time
}

// Text concatenates all text parts of the turn.
func (t *Turn) Text() string {
	var texts []string
	for _, part := range t.Content {
		if part.Type == ContentTypeText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// NewTextPart creates a text content part.
func NewTextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// NewImagePart creates an image reference part.
func NewImagePart(url string) ContentPart {
	return ContentPart{Type: ContentTypeImage, ImageURL: url}
}

// NewAudioPart creates an audio reference part.
func NewAudioPart(url string) ContentPart {
	return ContentPart{Type: ContentTypeAudio, AudioURL: url}
}

// UserTurn creates a user turn attributed to authorID.
func UserTurn(authorID string, parts []ContentPart) Turn {
	return Turn{Role: RoleUser, Content: parts, AuthorID: authorID, At: time.Now()}
}

// AssistantTurn creates an assistant turn holding a single text part.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: []ContentPart{NewTextPart(text)}, At: time.Now()}
}
