package ai

import (
	"encoding/json"
	"strings"
)

// Status tags the outcome of decoding a model reply, so each caller decides
// its own fallback instead of hiding distinct failures behind one catch.
type Status int

const (
	DecodeOK Status = iota
	DecodeEmpty
	DecodeMalformed
)

// Decode parses the model's textual payload into v. Markdown code fences
// around the JSON are stripped first; models add them despite instructions.
func Decode(text string, v any) Status {
	cleaned := stripFences(text)
	if cleaned == "" {
		return DecodeEmpty
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return DecodeMalformed
	}
	return DecodeOK
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}
