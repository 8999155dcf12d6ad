package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGrace = 10 * time.Minute

var dueT = time.Date(2026, time.November, 10, 12, 0, 0, 0, time.UTC)

func ladder(t *testing.T, tags ...string) IntervalSet {
	t.Helper()
	set, err := ParseIntervals(tags)
	require.NoError(t, err)
	return set
}

func pendingTask(due time.Time, fired ...string) *Task {
	task := &Task{ID: 1, OwnerID: 7, ChatID: 7, Description: "pay rent", DueAt: &due, Status: StatusPending}
	if len(fired) > 0 {
		task.Fired = make(map[string]FiredReminder, len(fired))
		for _, tag := range fired {
			task.Fired[tag] = FiredReminder{FiredAt: due, Outcome: OutcomeSent}
		}
	}
	return task
}

func TestDueIntervals_ExactBoundaries(t *testing.T) {
	set := ladder(t, "24h", "1h", "due")
	task := pendingTask(dueT)

	assert.Equal(t, []string{"24h"}, DueIntervals(task, set, dueT.Add(-24*time.Hour), testGrace))
	assert.Equal(t, []string{"1h"}, DueIntervals(task, set, dueT.Add(-time.Hour), testGrace))
	assert.Equal(t, []string{"due"}, DueIntervals(task, set, dueT, testGrace))

	late := dueT.Add(24 * time.Hour)
	assert.Empty(t, DueIntervals(task, set, late, testGrace))
	plan := Evaluate(task, set, late, testGrace)
	assert.Equal(t, StateExhausted, plan.State)
	assert.Equal(t, []string{"24h", "1h", "due"}, tagsOf(plan.Expired))
	assert.Nil(t, plan.Next)
}

func TestEvaluate_GraceWindowEdges(t *testing.T) {
	set := ladder(t, "1h", "due")
	task := pendingTask(dueT)

	justBefore := dueT.Add(-time.Hour - time.Second)
	plan := Evaluate(task, set, justBefore, testGrace)
	assert.Empty(t, plan.Due)
	assert.Equal(t, StateScheduled, plan.State)
	require.NotNil(t, plan.Next)
	assert.True(t, plan.Next.Equal(dueT.Add(-time.Hour)))

	lastMoment := dueT.Add(-time.Hour + testGrace)
	assert.Equal(t, []string{"1h"}, DueIntervals(task, set, lastMoment, testGrace))

	pastGrace := lastMoment.Add(time.Second)
	plan = Evaluate(task, set, pastGrace, testGrace)
	assert.Empty(t, plan.Due)
	assert.Equal(t, []string{"1h"}, tagsOf(plan.Expired))
	assert.Equal(t, StateScheduled, plan.State, "due interval is still ahead")
}

func TestEvaluate_SeveralDueAreOrderedByLead(t *testing.T) {
	set := ladder(t, "24h", "1h", "due")
	task := pendingTask(dueT)

	plan := Evaluate(task, set, dueT.Add(5*time.Minute), 2*time.Hour)
	assert.Equal(t, []string{"1h", "due"}, tagsOf(plan.Due))
	assert.Equal(t, []string{"24h"}, tagsOf(plan.Expired))
	assert.Nil(t, plan.Next)
}

func TestDueIntervals_NeverReturnsFiredTags(t *testing.T) {
	set := DefaultIntervals()
	subsets := [][]string{
		nil,
		{"24h"},
		{"24h", "12h", "6h"},
		{"1h", "15m"},
		{"due"},
		set.Tags(),
	}
	for _, fired := range subsets {
		task := pendingTask(dueT, fired...)
		for now := dueT.Add(-25 * time.Hour); now.Before(dueT.Add(time.Hour)); now = now.Add(7 * time.Minute) {
			for _, tag := range DueIntervals(task, set, now, 30*time.Minute) {
				assert.False(t, task.HasFired(tag), "tag %s returned at %s although fired", tag, now)
			}
		}
	}
}

func TestEvaluate_AllFiredIsExhausted(t *testing.T) {
	set := ladder(t, "1h", "due")
	task := pendingTask(dueT, "1h", "due")

	plan := Evaluate(task, set, dueT.Add(-2*time.Hour), testGrace)
	assert.Equal(t, StateExhausted, plan.State)
	assert.Empty(t, plan.Due)
}

func TestEvaluate_DoneIsSuppressed(t *testing.T) {
	set := DefaultIntervals()
	task := pendingTask(dueT)
	task.Status = StatusDone

	for _, now := range []time.Time{dueT.Add(-24 * time.Hour), dueT.Add(-time.Hour), dueT} {
		plan := Evaluate(task, set, now, testGrace)
		assert.Equal(t, StateSuppressed, plan.State)
		assert.Empty(t, DueIntervals(task, set, now, testGrace))
	}
	assert.True(t, StateSuppressed.Terminal())
	assert.True(t, StateExhausted.Terminal())
	assert.False(t, StateScheduled.Terminal())
}

func TestEvaluate_UnknownFiredTagsAreIgnored(t *testing.T) {
	set := ladder(t, "1h", "due")
	task := pendingTask(dueT, "notified_24h")

	assert.Equal(t, []string{"1h"}, DueIntervals(task, set, dueT.Add(-time.Hour), testGrace))
}

func TestValidateForScheduling(t *testing.T) {
	assert.ErrorIs(t, ValidateForScheduling(nil), ErrMalformedTask)
	assert.ErrorIs(t, ValidateForScheduling(&Task{ID: 3, Status: StatusPending}), ErrMalformedTask)
	assert.NoError(t, ValidateForScheduling(pendingTask(dueT)))

	noDate := &Task{ID: 4, Status: StatusPending}
	assert.Equal(t, StateExhausted, Evaluate(noDate, DefaultIntervals(), dueT, testGrace).State)
}

func tagsOf(ivs []Interval) []string {
	out := make([]string, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, iv.Tag)
	}
	return out
}
