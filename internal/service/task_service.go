package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/clock"
	"github.com/ykvlv/taskbot/internal/domain"
	"github.com/ykvlv/taskbot/internal/store"
)

const (
	// MaxListed caps how many tasks one listing shows.
	MaxListed = 20
	// MaxDescription is the longest description kept, in runes.
	MaxDescription = 512
)

// TaskService implements the task operations shared by commands, buttons
// and free text. Every call is scoped to the owner.
type TaskService struct {
	repo           store.TaskStore
	clock          clock.Clock
	log            *zap.Logger
	autoDeleteDone bool
}

// NewTaskService creates the service. With autoDeleteDone, completing a task
// deletes it.
func NewTaskService(repo store.TaskStore, clk clock.Clock, log *zap.Logger, autoDeleteDone bool) *TaskService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TaskService{repo: repo, clock: clk, log: log, autoDeleteDone: autoDeleteDone}
}

// Create stores a new pending task.
func (s *TaskService) Create(ctx context.Context, ownerID, chatID int64, description string, due *time.Time) (*domain.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domain.ErrEmptyDescription
	}
	if utf8.RuneCountInString(description) > MaxDescription {
		description = string([]rune(description)[:MaxDescription-1]) + "…"
	}
	if due != nil {
		u := due.UTC()
		due = &u
	}

	t := &domain.Task{
		OwnerID:     ownerID,
		ChatID:      chatID,
		Description: description,
		DueAt:       due,
		Status:      domain.StatusPending,
		CreatedAt:   s.clock.Now().UTC(),
	}
	id, err := s.repo.CreateTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t.ID = id
	s.log.Info("task created", zap.Int64("task_id", id), zap.Int64("user_id", ownerID), zap.Bool("has_due", due != nil))
	return t, nil
}

// List returns the owner's tasks with status, due date first and undated last.
func (s *TaskService) List(ctx context.Context, ownerID int64, status domain.Status) ([]domain.Task, error) {
	if !status.Valid() {
		status = domain.StatusPending
	}
	tasks, err := s.repo.ListByStatus(ctx, ownerID, status)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns one of the owner's tasks.
func (s *TaskService) Get(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrTaskNotFound
	}
	return t, nil
}

// Complete marks a pending task done and returns it. Reminders for it stop
// with the status change.
func (s *TaskService) Complete(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.StatusDone {
		return t, domain.ErrAlreadyDone
	}

	now := s.clock.Now().UTC()
	if s.autoDeleteDone {
		if err := s.repo.DeleteTask(ctx, id); err != nil {
			return nil, s.notFound(id, err)
		}
	} else if err := s.repo.UpdateStatus(ctx, id, domain.StatusDone, now); err != nil {
		return nil, s.notFound(id, err)
	}

	t.Status = domain.StatusDone
	t.CompletedAt = &now
	s.log.Info("task completed", zap.Int64("task_id", id), zap.Int64("user_id", ownerID), zap.Bool("deleted", s.autoDeleteDone))
	return t, nil
}

// Delete removes one of the owner's tasks and returns what was removed.
func (s *TaskService) Delete(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return nil, s.notFound(id, err)
	}
	s.log.Info("task deleted", zap.Int64("task_id", id), zap.Int64("user_id", ownerID))
	return t, nil
}

// notFound maps a row that vanished between read and write.
func (s *TaskService) notFound(id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrTaskNotFound
	}
	return fmt.Errorf("update task %d: %w", id, err)
}
