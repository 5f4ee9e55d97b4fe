// Package llmjson turns model output that was asked to be a JSON object
// into a decoded value.
package llmjson

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Sanitize strips markdown code fences and any prose around the outermost
// JSON object.
func Sanitize(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") || strings.HasPrefix(text, "```JSON") {
		text = text[len("```json"):]
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// Decode sanitizes text and unmarshals it into a T.
func Decode[T any](text string) (T, error) {
	var out T
	clean := Sanitize(text)
	if clean == "" {
		return out, eris.New("llmjson: empty response")
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return out, eris.Wrap(err, "llmjson: decode")
	}
	return out, nil
}
