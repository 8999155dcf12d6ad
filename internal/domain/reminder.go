package domain

import "time"

// ReminderState is a task's position in the reminder dimension.
type ReminderState string

const (
	StateScheduled  ReminderState = "scheduled"  // unfired intervals remain reachable
	StateExhausted  ReminderState = "exhausted"  // nothing left to fire
	StateSuppressed ReminderState = "suppressed" // task is no longer pending
)

// Terminal reports whether the scheduler has no further work for the state.
func (s ReminderState) Terminal() bool {
	return s == StateExhausted || s == StateSuppressed
}

// Plan is the outcome of evaluating one task at one instant.
type Plan struct {
	State ReminderState
	// Due intervals fire now, longest lead first.
	Due []Interval
	// Expired intervals passed their grace window without firing, longest lead first.
	Expired []Interval
	// Next is the earliest upcoming fire instant, nil when nothing is upcoming.
	Next *time.Time
}

// Evaluate decides which unfired intervals of t are due at now.
//
// An interval is due when fireAt <= now <= fireAt+grace and expired once now is
// past fireAt+grace. Tasks without a due date must be rejected with
// ValidateForScheduling before calling Evaluate; they evaluate as exhausted.
func Evaluate(t *Task, intervals IntervalSet, now time.Time, grace time.Duration) Plan {
	if t == nil || t.Status != StatusPending {
		return Plan{State: StateSuppressed}
	}
	if t.DueAt == nil {
		return Plan{State: StateExhausted}
	}
	if grace < 0 {
		grace = 0
	}

	var (
		plan     Plan
		upcoming int
	)
	for _, iv := range intervals {
		if t.HasFired(iv.Tag) {
			continue
		}
		fireAt := iv.FireAt(*t.DueAt)
		switch {
		case now.Before(fireAt):
			upcoming++
			if plan.Next == nil || fireAt.Before(*plan.Next) {
				at := fireAt
				plan.Next = &at
			}
		case !now.After(fireAt.Add(grace)):
			plan.Due = append(plan.Due, iv)
		default:
			plan.Expired = append(plan.Expired, iv)
		}
	}

	if len(plan.Due) == 0 && upcoming == 0 {
		plan.State = StateExhausted
	} else {
		plan.State = StateScheduled
	}
	return plan
}

// DueIntervals returns the tags that should fire at now, longest lead first.
// It never returns a tag already present in t.Fired.
func DueIntervals(t *Task, intervals IntervalSet, now time.Time, grace time.Duration) []string {
	plan := Evaluate(t, intervals, now, grace)
	if len(plan.Due) == 0 {
		return nil
	}
	tags := make([]string, len(plan.Due))
	for i, iv := range plan.Due {
		tags[i] = iv.Tag
	}
	return tags
}
