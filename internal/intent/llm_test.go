package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ykvlv/taskbot/internal/domain"
)

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

type fixedTranslator struct{ in Intent }

func (f fixedTranslator) Translate(context.Context, Request) Intent { return f.in }

func newTestLLM(t *testing.T, c completer) *LLM {
	fallback := fixedTranslator{in: Intent{Kind: KindCreate, Description: "from rules"}}
	return newLLM(c, nil, fallback, time.Second, zaptest.NewLogger(t))
}

func TestLLM_Create(t *testing.T) {
	moscow := mustLoad(t, "Europe/Moscow")
	c := &fakeCompleter{reply: `{"action":"create","description":"Call mom","due":"2026-10-20 10:00"}`}
	l := newTestLLM(t, c)

	got := l.Translate(context.Background(), Request{Text: "call mom on tuesday at 10", Location: moscow, Now: now})
	require.Equal(t, KindCreate, got.Kind)
	assert.Equal(t, "Call mom", got.Description)
	require.NotNil(t, got.Due)
	assert.Equal(t, time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC), *got.Due)
	assert.Contains(t, c.user, "2026-10-18 18:00 Sunday (Europe/Moscow)")
	assert.Contains(t, c.user, "call mom on tuesday at 10")
}

func TestLLM_CreateWithUnreadableDue(t *testing.T) {
	c := &fakeCompleter{reply: `{"action":"create","description":"Dentist","due":"sometime soonish"}`}
	got := newTestLLM(t, c).Translate(context.Background(), Request{Text: "dentist sometime soonish", Now: now})
	require.Equal(t, KindCreate, got.Kind)
	assert.Nil(t, got.Due)
	assert.Equal(t, "sometime soonish", got.DuePhrase)
	assert.ErrorIs(t, got.DueProblem, ErrUnparsableDate)
}

func TestLLM_OtherActions(t *testing.T) {
	tests := []struct {
		reply string
		want  Intent
	}{
		{"```json\n{\"action\":\"list\",\"status\":\"done\"}\n```", Intent{Kind: KindList, Status: domain.StatusDone}},
		{`{"action":"list"}`, Intent{Kind: KindList, Status: domain.StatusPending}},
		{`{"action":"complete","task_id":12}`, Intent{Kind: KindComplete, TaskID: 12}},
		{`{"action":"delete","task_id":"45"}`, Intent{Kind: KindDelete, TaskID: 45}},
		{`{"action":"unknown"}`, Intent{Kind: KindUnrecognized}},
	}
	for _, tt := range tests {
		got := newTestLLM(t, &fakeCompleter{reply: tt.reply}).Translate(context.Background(), Request{Now: now})
		assert.Equal(t, tt.want, got, tt.reply)
	}
}

func TestLLM_FallsBackOnErrors(t *testing.T) {
	replies := []*fakeCompleter{
		{err: errors.New("429 too many requests")},
		{reply: "sure! here you go"},
		{reply: `{"action":"complete"}`},
		{reply: `{"action":"create","description":"  "}`},
		{reply: `{"action":"launch_rockets"}`},
	}
	for _, c := range replies {
		got := newTestLLM(t, c).Translate(context.Background(), Request{Text: "x", Now: now})
		assert.Equal(t, "from rules", got.Description, c.reply)
	}
}
