package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/taskbot/internal/domain"
)

func TestRules_Translate(t *testing.T) {
	r := NewRules(nil)
	moscow := mustLoad(t, "Europe/Moscow")

	tests := []struct {
		text string
		want Intent
	}{
		{"show my tasks", Intent{Kind: KindList, Status: domain.StatusPending}},
		{"Please list all tasks", Intent{Kind: KindList, Status: domain.StatusPending}},
		{"show my done tasks", Intent{Kind: KindList, Status: domain.StatusDone}},
		{"what are my completed tasks?", Intent{Kind: KindList, Status: domain.StatusDone}},
		{"mark task 12 done", Intent{Kind: KindComplete, TaskID: 12}},
		{"complete #3", Intent{Kind: KindComplete, TaskID: 3}},
		{"task 7 is done", Intent{Kind: KindComplete, TaskID: 7}},
		{"delete task 45", Intent{Kind: KindDelete, TaskID: 45}},
		{"remove #9", Intent{Kind: KindDelete, TaskID: 9}},
		{"todo: buy milk", Intent{Kind: KindCreate, Description: "buy milk"}},
		{"remind me to water the plants", Intent{Kind: KindCreate, Description: "water the plants"}},
		{"add task book flights", Intent{Kind: KindCreate, Description: "book flights"}},
		{"hello there", Intent{Kind: KindUnrecognized}},
		{"   ", Intent{Kind: KindUnrecognized}},
		{"delete everything", Intent{Kind: KindUnrecognized}},
		{"delete 5", Intent{Kind: KindDelete, TaskID: 5}},
		{"mark 10 done", Intent{Kind: KindComplete, TaskID: 10}},
		{"finish task 4", Intent{Kind: KindComplete, TaskID: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := r.Translate(context.Background(), Request{Text: tt.text, Location: moscow, Now: now})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRules_CreateWithDate(t *testing.T) {
	r := NewRules(nil)
	moscow := mustLoad(t, "Europe/Moscow")

	got := r.Translate(context.Background(), Request{
		Text: "remind me to call mom tomorrow at 10am", Location: moscow, Now: now,
	})
	require.Equal(t, KindCreate, got.Kind)
	assert.Equal(t, "call mom", got.Description)
	require.NotNil(t, got.Due)
	assert.Equal(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC), *got.Due)
	assert.NoError(t, got.DueProblem)

	// A date phrase alone is enough to mean "create".
	got = r.Translate(context.Background(), Request{
		Text: "pay rent by 2026-11-01 09:00", Location: moscow, Now: now,
	})
	require.Equal(t, KindCreate, got.Kind)
	assert.Equal(t, "pay rent", got.Description)
	require.NotNil(t, got.Due)
	assert.Equal(t, time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC), *got.Due)
}

func TestRules_NumbersInDatedTextAreNotTaskIDs(t *testing.T) {
	r := NewRules(nil)
	moscow := mustLoad(t, "Europe/Moscow")

	tests := []struct {
		text string
		desc string
	}{
		{"remove 2 stickers from laptop tomorrow", "remove 2 stickers from laptop"},
		{"drop 3 packages at the post office tomorrow at 5pm", "drop 3 packages at the post office"},
		{"finish 4 chapters of the book by friday", "finish 4 chapters of the book"},
		{"mark 10 essays tomorrow", "mark 10 essays"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := r.Translate(context.Background(), Request{Text: tt.text, Location: moscow, Now: now})
			require.Equal(t, KindCreate, got.Kind)
			assert.Zero(t, got.TaskID)
			assert.Equal(t, tt.desc, got.Description)
			assert.NotNil(t, got.Due)
		})
	}
}

func TestRules_UnresolvableDateCreatesUndatedTask(t *testing.T) {
	r := NewRules(nil)
	newYork := mustLoad(t, "America/New_York")

	got := r.Translate(context.Background(), Request{
		Text: "remind me to file taxes 2026-03-08 02:30", Location: newYork, Now: now,
	})
	require.Equal(t, KindCreate, got.Kind)
	assert.Equal(t, "file taxes", got.Description)
	assert.Nil(t, got.Due)
	assert.Equal(t, "2026-03-08 02:30", got.DuePhrase)
	assert.ErrorIs(t, got.DueProblem, domain.ErrNonexistentLocalTime)
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "pay rent", cleanDescription("  pay   rent by  "))
	assert.Equal(t, "report", cleanDescription("report due on"))
	assert.Equal(t, "", cleanDescription(" , "))
}
