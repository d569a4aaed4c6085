package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/taskmind/taskmind/internal/model"
)

const (
	extractTemperature = 0.7
	extractMaxTokens   = 800
)

// Extractor mines task drafts out of a free-text context blob. Any failure
// degrades to an empty result; the caller cannot tell "nothing found" from
// "model call failed" (the log can).
type Extractor struct {
	client CompletionClient
}

func NewExtractor(client CompletionClient) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, content, sourceType string) []model.TaskDraft {
	prompt := buildExtractPrompt(content, sourceType)

	reply, err := e.client.Complete(ctx, prompt, CompletionOptions{
		Temperature: extractTemperature,
		MaxTokens:   extractMaxTokens,
	})
	if err != nil {
		log.Printf("extract: completion failed, returning no drafts: %v", err)
		return nil
	}

	var drafts []model.TaskDraft
	if status := Decode(reply, &drafts); status != DecodeOK {
		log.Printf("extract: reply not decodable (status %d), returning no drafts", status)
		return nil
	}
	return drafts
}

func buildExtractPrompt(content, sourceType string) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant that extracts actionable tasks from various types of content.\n\n")
	fmt.Fprintf(&b, "Content Type: %s\nContent: %q\n\n", sourceType, content)
	b.WriteString(`Analyze this content and extract any actionable tasks, deadlines, or commitments. For each task found:

1. Create a clear, specific title
2. Provide a detailed description
3. Assign appropriate category (` + strings.Join(model.Categories, ", ") + `)
4. Set priority (high, medium, low) based on urgency/importance
5. Extract or suggest deadline if mentioned or implied

Return a JSON array of tasks:
[
  {
    "title": "task title",
    "description": "detailed description",
    "category": "category",
    "priority": "priority",
    "deadline": "YYYY-MM-DD or null"
  }
]

If no clear tasks are found, return an empty array [].
`)
	return b.String()
}
