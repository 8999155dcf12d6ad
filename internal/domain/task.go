package domain

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusDone
}

// Outcome records what happened to a reminder interval once it left the schedule.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"       // handed to the dispatcher
	OutcomeFailed     Outcome = "failed"     // dispatcher returned an error
	OutcomeExpired    Outcome = "expired"    // window passed without a tick
	OutcomeSuperseded Outcome = "superseded" // a shorter lead was due in the same tick
)

// FiredReminder is a persisted record of a handled interval.
type FiredReminder struct {
	FiredAt time.Time
	Outcome Outcome
}

// Task is a user's to-do item. DueAt is never changed after creation.
type Task struct {
	ID          int64
	OwnerID     int64
	ChatID      int64
	Description string
	DueAt       *time.Time // UTC, nullable
	Status      Status
	Fired       map[string]FiredReminder // interval tag -> record
	Exhausted   bool
	CreatedAt   time.Time  // UTC
	CompletedAt *time.Time // UTC, nullable
}

// HasFired reports whether the interval tag was already handled.
func (t *Task) HasFired(tag string) bool {
	_, ok := t.Fired[tag]
	return ok
}

// ValidateForScheduling rejects tasks the reminder engine cannot work with.
func ValidateForScheduling(t *Task) error {
	if t == nil {
		return ErrMalformedTask
	}
	if t.DueAt == nil || t.DueAt.IsZero() {
		return ErrMalformedTask
	}
	return nil
}
