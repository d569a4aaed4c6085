package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/taskmind/taskmind/internal/model"
)

const (
	enhanceTemperature = 0.7
	enhanceMaxTokens   = 500
	maxSampleTasks     = 3
	fallbackDeadline   = 7 * 24 * time.Hour
)

// Enhancer proposes improved fields for a task draft. It never fails: any
// model or decode error is replaced by a fixed fallback, so a degraded
// suggestion is indistinguishable from a low-confidence one.
type Enhancer struct {
	client CompletionClient
	now    func() time.Time
}

func NewEnhancer(client CompletionClient) *Enhancer {
	return &Enhancer{client: client, now: time.Now}
}

func (e *Enhancer) Enhance(ctx context.Context, title, description string, sample []model.Task) model.Enhancement {
	prompt := buildEnhancePrompt(title, description, sample)

	reply, err := e.client.Complete(ctx, prompt, CompletionOptions{
		Temperature: enhanceTemperature,
		MaxTokens:   enhanceMaxTokens,
	})
	if err != nil {
		log.Printf("enhance: completion failed, using fallback: %v", err)
		return e.fallback(title, description)
	}

	var enhancement model.Enhancement
	if status := Decode(reply, &enhancement); status != DecodeOK {
		log.Printf("enhance: reply not decodable (status %d), using fallback", status)
		return e.fallback(title, description)
	}
	return enhancement
}

func (e *Enhancer) fallback(title, description string) model.Enhancement {
	if strings.TrimSpace(title) == "" {
		title = "New Task"
	}
	if strings.TrimSpace(description) == "" {
		description = "Task description"
	}
	return model.Enhancement{
		Title:             title,
		Description:       description,
		Category:          "Work",
		Priority:          model.PriorityMedium,
		SuggestedDeadline: e.now().Add(fallbackDeadline).Format("2006-01-02"),
		Confidence:        0.5,
	}
}

func buildEnhancePrompt(title, description string, sample []model.Task) string {
	var b strings.Builder
	b.WriteString("You are an AI task management assistant. Enhance the following task with better details:\n\n")
	fmt.Fprintf(&b, "Original Task:\n- Title: %q\n- Description: %q\n\n", title, description)

	fmt.Fprintf(&b, "Context (existing tasks count: %d):\n", len(sample))
	for i, task := range sample {
		if i >= maxSampleTasks {
			break
		}
		fmt.Fprintf(&b, "- %s (%s priority, due: %s)\n", task.Title, task.Priority, formatDeadline(task.Deadline))
	}

	b.WriteString(`
Please provide an enhanced version with:
1. A clear, actionable title
2. A detailed description with specific steps if needed
3. Appropriate category (` + strings.Join(model.Categories, ", ") + `)
4. Priority level (high, medium, low) based on urgency and importance
5. Suggested deadline (YYYY-MM-DD format, within next 30 days)
6. Confidence score (0-1) for your suggestions

Respond in JSON format:
{
  "title": "enhanced title",
  "description": "detailed description",
  "category": "category",
  "priority": "priority",
  "suggestedDeadline": "YYYY-MM-DD",
  "confidence": 0.85
}
`)
	return b.String()
}

func formatDeadline(deadline *time.Time) string {
	if deadline == nil {
		return "none"
	}
	return deadline.Format("2006-01-02")
}
