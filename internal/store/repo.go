package store

import (
	"context"
	"errors"
	"time"

	"github.com/ykvlv/taskbot/internal/domain"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ClaimResult tells the caller whether marking an interval changed anything.
type ClaimResult int

const (
	// Claimed means the interval was unfired and the task pending; it is now fired.
	Claimed ClaimResult = iota
	// AlreadyFired means another tick handled the interval first.
	AlreadyFired
	// NotPending means the task was completed or deleted before the claim.
	NotPending
)

func (c ClaimResult) String() string {
	switch c {
	case Claimed:
		return "claimed"
	case AlreadyFired:
		return "already_fired"
	case NotPending:
		return "not_pending"
	default:
		return "unknown"
	}
}

// TaskStore persists tasks and their fired reminder intervals.
type TaskStore interface {
	CreateTask(ctx context.Context, t *domain.Task) (int64, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	ListPending(ctx context.Context, ownerID *int64) ([]domain.Task, error)
	ListByStatus(ctx context.Context, ownerID int64, status domain.Status) ([]domain.Task, error)
	// ListSchedulable returns pending, non-exhausted tasks with a due date at
	// or before horizon.
	ListSchedulable(ctx context.Context, horizon time.Time) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status, at time.Time) error
	// MarkFired atomically records tag as handled, but only while the task is
	// still pending. Marking an already fired tag is a no-op.
	MarkFired(ctx context.Context, id int64, tag string, outcome domain.Outcome, at time.Time) (ClaimResult, error)
	ReleaseFired(ctx context.Context, id int64, tag string) error
	SetOutcome(ctx context.Context, id int64, tag string, outcome domain.Outcome) error
	MarkExhausted(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64) error
	PurgeDone(ctx context.Context, completedBefore time.Time) (int64, error)
}

// PrefStore persists user timezone preferences.
type PrefStore interface {
	GetTimezone(ctx context.Context, userID int64) (string, bool, error)
	SetTimezone(ctx context.Context, userID int64, tz string) error
}

// Repo is everything the application needs from storage.
type Repo interface {
	TaskStore
	PrefStore
	Ping(ctx context.Context) error
	Close() error
}
