package model

import (
	"strings"
	"time"
)

// Priority levels.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Context source types.
const (
	SourceEmail   = "email"
	SourceMessage = "message"
	SourceNote    = "note"
	SourceMeeting = "meeting"
)

// Categories is the default label set offered to users and to the model
// prompts. It is not enforced at the store boundary.
var Categories = []string{"Work", "Personal", "Health", "Finance", "Shopping", "Travel"}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Status      string     `json:"status"`
	UserID      string     `json:"user_id"`
	ContextID   *string    `json:"context_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Context struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	SourceType     string     `json:"source_type"`
	UserID         string     `json:"user_id"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	ExtractedTasks int        `json:"extracted_tasks"`
}

// Enhancement is the model's proposed improvement to a task draft. It is
// never persisted; the user applies or discards it.
type Enhancement struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	Priority          string  `json:"priority"`
	SuggestedDeadline string  `json:"suggestedDeadline"`
	Confidence        float64 `json:"confidence"`
}

// TaskDraft is one task the extraction model believes it found in a context
// blob. Deadline is a YYYY-MM-DD string, empty when none was mentioned.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline"`
}

// Filter is the active task-list filter. Empty or "all" fields match
// everything; the predicates are ANDed.
type Filter struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Search   string `json:"search"`
}

// Matches reports whether the task passes every filter predicate.
func (f Filter) Matches(task Task) bool {
	if !matchField(f.Category, task.Category) {
		return false
	}
	if !matchField(f.Priority, task.Priority) {
		return false
	}
	if !matchField(f.Status, task.Status) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(task.Title), needle) &&
			!strings.Contains(strings.ToLower(task.Description), needle) {
			return false
		}
	}
	return true
}

func matchField(filter, value string) bool {
	return filter == "" || filter == "all" || filter == value
}
