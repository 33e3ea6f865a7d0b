// Package respond assembles multimodal provider input and drives reply
// generation across the primary and fallback backends.
package respond

import (
	"strings"

	"github.com/tenshi-bot/tenshi/pkg/convctx"
)

// Attachment is an uploaded file on an incoming message, classified
// only by its declared media type and URL.
type Attachment struct {
	URL       string
	MediaType string
}

var audioHints = []string{"mp3", "wav", "ogg"}

func isAudioAttachment(att Attachment) bool {
	mediaType := strings.ToLower(att.MediaType)
	if strings.HasPrefix(mediaType, "audio/") {
		return true
	}
	probe := mediaType + " " + strings.ToLower(att.URL)
	for _, hint := range audioHints {
		if strings.Contains(probe, hint) {
			return true
		}
	}
	return false
}

// Assemble turns raw message text plus attachments into the ordered
// content parts sent to a provider. Text is prefixed with the sender's
// display name so the model knows who is speaking. The result is never
// empty: with nothing usable, a plain greeting is substituted.
func Assemble(rawText string, attachments []Attachment, displayName string) []convctx.ContentPart {
	var parts []convctx.ContentPart

	if text := strings.TrimSpace(rawText); text != "" {
		parts = append(parts, convctx.NewTextPart(displayName+": "+text))
	}

	for _, att := range attachments {
		mediaType := strings.ToLower(att.MediaType)
		switch {
		case strings.HasPrefix(mediaType, "image/"):
			parts = append(parts, convctx.NewImagePart(att.URL))
		case isAudioAttachment(att):
			parts = append(parts, convctx.NewAudioPart(att.URL))
		}
	}

	if len(parts) == 0 {
		parts = append(parts, convctx.NewTextPart(displayName+": Hello"))
	}
	return parts
}
