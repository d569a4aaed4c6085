package tasks

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/taskmind/taskmind/internal/db"
	"github.com/taskmind/taskmind/internal/model"
)

// Store is the slice of the store adapter the manager needs.
type Store interface {
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	CreateTask(ctx context.Context, userID string, input db.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, update db.TaskUpdate) (model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
}

// Enhancer proposes improved task fields given the current list as context.
type Enhancer interface {
	Enhance(ctx context.Context, title, description string, sample []model.Task) model.Enhancement
}

// Manager owns one user's task list. Local state only ever changes by
// applying a confirmed store result; there is no speculative mutation. The
// mutex serializes mutating operations so a logical action cannot run twice
// concurrently.
type Manager struct {
	mu       sync.Mutex
	store    Store
	enhancer Enhancer
	userID   string

	tasks  []model.Task
	filter model.Filter
}

func NewManager(store Store, enhancer Enhancer, userID string) *Manager {
	return &Manager{store: store, enhancer: enhancer, userID: userID}
}

// Load replaces the local list with the store's current rows, newest-first.
func (m *Manager) Load(ctx context.Context) error {
	loaded, err := m.store.ListTasks(ctx, m.userID)
	if err != nil {
		log.Printf("tasks: load for %s failed: %v", m.userID, err)
		return err
	}

	m.mu.Lock()
	m.tasks = loaded
	m.mu.Unlock()
	return nil
}

func (m *Manager) Create(ctx context.Context, input db.TaskInput) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created, err := m.store.CreateTask(ctx, m.userID, input)
	if err != nil {
		log.Printf("tasks: create for %s failed: %v", m.userID, err)
		return model.Task{}, err
	}

	m.tasks = append([]model.Task{created}, m.tasks...)
	return created, nil
}

func (m *Manager) Update(ctx context.Context, taskID string, update db.TaskUpdate) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated, err := m.store.UpdateTask(ctx, m.userID, taskID, update)
	if err != nil {
		log.Printf("tasks: update %s for %s failed: %v", taskID, m.userID, err)
		return model.Task{}, err
	}

	for i, task := range m.tasks {
		if task.ID == taskID {
			m.tasks[i] = updated
			break
		}
	}
	return updated, nil
}

func (m *Manager) Delete(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteTask(ctx, m.userID, taskID); err != nil {
		log.Printf("tasks: delete %s for %s failed: %v", taskID, m.userID, err)
		return err
	}

	for i, task := range m.tasks {
		if task.ID == taskID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	return nil
}

// ToggleStatus flips completed to pending; any other status, in-progress
// included, collapses to completed. There is no three-way cycle.
func (m *Manager) ToggleStatus(ctx context.Context, taskID string) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *model.Task
	for i := range m.tasks {
		if m.tasks[i].ID == taskID {
			current = &m.tasks[i]
			break
		}
	}
	if current == nil {
		return model.Task{}, fmt.Errorf("task %s: %w", taskID, db.ErrNotFound)
	}

	next := model.StatusCompleted
	if current.Status == model.StatusCompleted {
		next = model.StatusPending
	}

	updated, err := m.store.UpdateTask(ctx, m.userID, taskID, db.TaskUpdate{Status: &next})
	if err != nil {
		log.Printf("tasks: toggle %s for %s failed: %v", taskID, m.userID, err)
		return model.Task{}, err
	}

	*current = updated
	return updated, nil
}

func (m *Manager) SetFilter(filter model.Filter) {
	m.mu.Lock()
	m.filter = filter
	m.mu.Unlock()
}

func (m *Manager) Filter() model.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// FilteredView applies the active filter to the local list. It is recomputed
// on every call, never cached.
func (m *Manager) FilteredView() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := make([]model.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		if m.filter.Matches(task) {
			view = append(view, task)
		}
	}
	return view
}

// All returns a snapshot of the unfiltered list.
func (m *Manager) All() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]model.Task, len(m.tasks))
	copy(snapshot, m.tasks)
	return snapshot
}

// Enhance asks the model for an improved draft using the local list as weak
// grounding. It never fails; the service substitutes a fallback internally.
func (m *Manager) Enhance(ctx context.Context, title, description string) model.Enhancement {
	return m.enhancer.Enhance(ctx, title, description, m.All())
}
