package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ykvlv/taskbot/internal/clock"
	"github.com/ykvlv/taskbot/internal/domain"
	"github.com/ykvlv/taskbot/internal/store"
)

var now = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, autoDelete bool) (*TaskService, *store.SQLiteRepo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return NewTaskService(repo, clock.NewFake(now), zaptest.NewLogger(t), autoDelete), repo
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, false)

	_, err := svc.Create(ctx, 1, 1, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyDescription)

	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	due := time.Date(2026, 10, 19, 10, 0, 0, 0, moscow)
	task, err := svc.Create(ctx, 1, 100, "  call mom ", &due)
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.Equal(t, "call mom", task.Description)
	assert.Equal(t, time.UTC, task.DueAt.Location())
	assert.True(t, task.DueAt.Equal(due))
	assert.Equal(t, now, task.CreatedAt)

	got, err := svc.Get(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ChatID)
}

func TestCreate_TruncatesLongDescription(t *testing.T) {
	svc, _ := newService(t, false)
	task, err := svc.Create(context.Background(), 1, 1, strings.Repeat("я", 600), nil)
	require.NoError(t, err)
	assert.Equal(t, MaxDescription, utf8.RuneCountInString(task.Description))
	assert.True(t, strings.HasSuffix(task.Description, "…"))
}

func TestGet_ForeignTaskIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, false)
	task, err := svc.Create(ctx, 1, 1, "mine", nil)
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = svc.Get(ctx, 1, 999)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = svc.Complete(ctx, 2, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = svc.Delete(ctx, 2, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, false)
	task, err := svc.Create(ctx, 1, 1, "finish me", nil)
	require.NoError(t, err)

	done, err := svc.Complete(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)

	stored, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, stored.Status)

	again, err := svc.Complete(ctx, 1, task.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyDone)
	assert.Equal(t, "finish me", again.Description)
}

func TestComplete_AutoDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, true)
	task, err := svc.Create(ctx, 1, 1, "vanish", nil)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, 1, task.ID)
	require.NoError(t, err)
	_, err = repo.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, false)
	later := now.Add(48 * time.Hour)
	sooner := now.Add(time.Hour)
	a, err := svc.Create(ctx, 1, 1, "later", &later)
	require.NoError(t, err)
	b, err := svc.Create(ctx, 1, 1, "sooner", &sooner)
	require.NoError(t, err)
	c, err := svc.Create(ctx, 1, 1, "undated", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, 2, "other user", nil)
	require.NoError(t, err)

	tasks, err := svc.List(ctx, 1, domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []int64{b.ID, a.ID, c.ID}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	deleted, err := svc.Delete(ctx, 1, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "later", deleted.Description)
	_, err = svc.Delete(ctx, 1, a.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = svc.Complete(ctx, 1, b.ID)
	require.NoError(t, err)
	done, err := svc.List(ctx, 1, domain.StatusDone)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, b.ID, done[0].ID)
}
