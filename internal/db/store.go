package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmind/taskmind/internal/model"
)

// ErrNotFound is returned when a row does not exist for the caller's user.
var ErrNotFound = errors.New("not found")

// Store translates task and context intents into queries against the
// datastore. Every query is parameterized by the owning user's id; rows
// belonging to other users are unreachable through it.
type Store struct {
	DB *sql.DB
}

type TaskInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Status      string
	Deadline    *time.Time
	ContextID   *string
}

// TaskUpdate carries partial fields; nil means "leave unchanged".
// DeadlineSet distinguishes "clear the deadline" from "leave it alone".
type TaskUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
	Status      *string
	Deadline    *time.Time
	DeadlineSet bool
}

type ContextInput struct {
	Content        string
	SourceType     string
	ExtractedTasks int
	ProcessedAt    *time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

const taskColumns = "id, title, description, category, priority, deadline, status, user_id, context_id, created_at, updated_at"

func (s *Store) CreateTask(ctx context.Context, userID string, input TaskInput) (model.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return model.Task{}, fmt.Errorf("task title is required")
	}

	now := time.Now().UTC()
	task := model.Task{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Category:    valueOr(input.Category, "Work"),
		Priority:    valueOr(input.Priority, model.PriorityMedium),
		Deadline:    input.Deadline,
		Status:      valueOr(input.Status, model.StatusPending),
		UserID:      userID,
		ContextID:   input.ContextID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.Category, task.Priority,
		nullTime(task.Deadline), task.Status, task.UserID, nullString(task.ContextID),
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}

	return task, nil
}

func (s *Store) GetTask(ctx context.Context, userID, taskID string) (model.Task, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	return scanTask(row)
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, userID, taskID string, update TaskUpdate) (model.Task, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *update.Priority)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.DeadlineSet {
		sets = append(sets, "deadline = ?")
		args = append(args, nullTime(update.Deadline))
	}

	args = append(args, taskID, userID)
	result, err := s.DB.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return model.Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	return s.GetTask(ctx, userID, taskID)
}

func (s *Store) DeleteTask(ctx context.Context, userID, taskID string) error {
	result, err := s.DB.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return nil
}

const contextColumns = "id, content, source_type, user_id, created_at, processed_at, extracted_tasks"

func (s *Store) CreateContext(ctx context.Context, userID string, input ContextInput) (model.Context, error) {
	record := model.Context{
		ID:             uuid.NewString(),
		Content:        input.Content,
		SourceType:     input.SourceType,
		UserID:         userID,
		CreatedAt:      time.Now().UTC(),
		ProcessedAt:    input.ProcessedAt,
		ExtractedTasks: input.ExtractedTasks,
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO contexts (`+contextColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Content, record.SourceType, record.UserID,
		record.CreatedAt, nullTime(record.ProcessedAt), record.ExtractedTasks)
	if err != nil {
		return model.Context{}, fmt.Errorf("insert context: %w", err)
	}

	return record, nil
}

func (s *Store) ListContexts(ctx context.Context, userID string) ([]model.Context, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+contextColumns+` FROM contexts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	defer rows.Close()

	var contexts []model.Context
	for rows.Next() {
		record, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, record)
	}
	return contexts, rows.Err()
}

// SetContextExtractedTasks reconciles a context's task count after a partial
// task-insert failure so the snapshot never overstates persisted rows.
func (s *Store) SetContextExtractedTasks(ctx context.Context, userID, contextID string, count int) (model.Context, error) {
	result, err := s.DB.ExecContext(ctx,
		"UPDATE contexts SET extracted_tasks = ? WHERE id = ? AND user_id = ?", count, contextID, userID)
	if err != nil {
		return model.Context{}, fmt.Errorf("update context: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return model.Context{}, fmt.Errorf("context %s: %w", contextID, ErrNotFound)
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT `+contextColumns+` FROM contexts WHERE id = ? AND user_id = ?`, contextID, userID)
	return scanContext(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var task model.Task
	var deadline sql.NullTime
	var contextID sql.NullString

	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Category,
		&task.Priority, &deadline, &task.Status, &task.UserID, &contextID,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, fmt.Errorf("task: %w", ErrNotFound)
		}
		return model.Task{}, fmt.Errorf("scan task: %w", err)
	}

	if deadline.Valid {
		value := deadline.Time
		task.Deadline = &value
	}
	if contextID.Valid {
		value := contextID.String
		task.ContextID = &value
	}
	return task, nil
}

func scanContext(row rowScanner) (model.Context, error) {
	var record model.Context
	var processedAt sql.NullTime

	err := row.Scan(&record.ID, &record.Content, &record.SourceType, &record.UserID,
		&record.CreatedAt, &processedAt, &record.ExtractedTasks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Context{}, fmt.Errorf("context: %w", ErrNotFound)
		}
		return model.Context{}, fmt.Errorf("scan context: %w", err)
	}

	if processedAt.Valid {
		value := processedAt.Time
		record.ProcessedAt = &value
	}
	return record, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
