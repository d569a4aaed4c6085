package contexts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/taskmind/taskmind/internal/db"
	"github.com/taskmind/taskmind/internal/model"
)

// Store is the slice of the store adapter the manager needs. Task creation
// is included because extracted drafts are persisted as real task rows.
type Store interface {
	ListContexts(ctx context.Context, userID string) ([]model.Context, error)
	CreateContext(ctx context.Context, userID string, input db.ContextInput) (model.Context, error)
	SetContextExtractedTasks(ctx context.Context, userID, contextID string, count int) (model.Context, error)
	CreateTask(ctx context.Context, userID string, input db.TaskInput) (model.Task, error)
}

// Extractor mines task drafts from a context blob.
type Extractor interface {
	Extract(ctx context.Context, content, sourceType string) []model.TaskDraft
}

// Manager owns one user's context records and orchestrates the add-context
// pipeline: extract, persist the context, persist the drafts as tasks.
type Manager struct {
	mu        sync.Mutex
	store     Store
	extractor Extractor
	userID    string
	now       func() time.Time

	contexts []model.Context
}

func NewManager(store Store, extractor Extractor, userID string) *Manager {
	return &Manager{store: store, extractor: extractor, userID: userID, now: time.Now}
}

// Load replaces the local list with the store's current rows, newest-first.
func (m *Manager) Load(ctx context.Context) error {
	loaded, err := m.store.ListContexts(ctx, m.userID)
	if err != nil {
		log.Printf("contexts: load for %s failed: %v", m.userID, err)
		return err
	}

	m.mu.Lock()
	m.contexts = loaded
	m.mu.Unlock()
	return nil
}

// AddContext runs extraction, records the context with processed_at set and
// extracted_tasks equal to the draft count, then persists each draft as a
// task linked back to the context. The two writes are not transactional: if
// a task insert fails after the context row exists, the context's count is
// reconciled down to the number of tasks actually persisted and the error is
// returned with the context row kept.
func (m *Manager) AddContext(ctx context.Context, content, sourceType string) (model.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drafts := m.extractor.Extract(ctx, content, sourceType)

	processedAt := m.now().UTC()
	record, err := m.store.CreateContext(ctx, m.userID, db.ContextInput{
		Content:        content,
		SourceType:     sourceType,
		ExtractedTasks: len(drafts),
		ProcessedAt:    &processedAt,
	})
	if err != nil {
		log.Printf("contexts: create for %s failed: %v", m.userID, err)
		return model.Context{}, err
	}

	persisted := 0
	for _, draft := range drafts {
		if _, err := m.store.CreateTask(ctx, m.userID, draftToInput(draft, record.ID)); err != nil {
			log.Printf("contexts: task insert %d/%d for context %s failed: %v", persisted+1, len(drafts), record.ID, err)
			if reconciled, rerr := m.store.SetContextExtractedTasks(ctx, m.userID, record.ID, persisted); rerr != nil {
				log.Printf("contexts: reconcile count for %s failed: %v", record.ID, rerr)
			} else {
				record = reconciled
			}
			m.contexts = append([]model.Context{record}, m.contexts...)
			return record, fmt.Errorf("persist extracted tasks: %w", err)
		}
		persisted++
	}

	m.contexts = append([]model.Context{record}, m.contexts...)
	return record, nil
}

// All returns a snapshot of the local list.
func (m *Manager) All() []model.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]model.Context, len(m.contexts))
	copy(snapshot, m.contexts)
	return snapshot
}

func draftToInput(draft model.TaskDraft, contextID string) db.TaskInput {
	input := db.TaskInput{
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Priority:    draft.Priority,
		ContextID:   &contextID,
	}
	if draft.Deadline != "" && draft.Deadline != "null" {
		if parsed, err := time.Parse("2006-01-02", draft.Deadline); err == nil {
			input.Deadline = &parsed
		}
	}
	return input
}
