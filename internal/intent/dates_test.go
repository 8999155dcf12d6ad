package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/taskbot/internal/domain"
)

// 18:00 in Moscow, 11:00 in New York.
var now = time.Date(2026, time.October, 18, 15, 0, 0, 0, time.UTC)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestDateParser_Relative(t *testing.T) {
	p := NewDateParser()
	moscow := mustLoad(t, "Europe/Moscow")

	due := p.Parse("call mom tomorrow at 10am", now, moscow)
	require.True(t, due.Found())
	require.NoError(t, due.Problem)
	require.NotNil(t, due.At)
	assert.Equal(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC), *due.At)
	assert.Equal(t, time.UTC, due.At.Location())

	due = p.Parse("check oven in 2 hours", now, moscow)
	require.NotNil(t, due.At)
	assert.Equal(t, now.Add(2*time.Hour), *due.At)
}

func TestDateParser_ElapsedDurationAcrossClockChange(t *testing.T) {
	p := NewDateParser()
	newYork := mustLoad(t, "America/New_York")

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		// 01:30 EST, clocks jump from 02:00 to 03:00.
		{"spring forward", time.Date(2026, 3, 8, 6, 30, 0, 0, time.UTC), time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC)},
		// 01:30 EDT, the 01:00 hour repeats.
		{"fall back", time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC), time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := p.Parse("check oven in 1 hour", tt.now, newYork)
			require.True(t, due.Found())
			require.NoError(t, due.Problem)
			require.NotNil(t, due.At)
			assert.Equal(t, tt.want, *due.At)
		})
	}
}

func TestDateParser_PastClockTimeRollsToTomorrow(t *testing.T) {
	p := NewDateParser()
	moscow := mustLoad(t, "Europe/Moscow")

	due := p.Parse("gym at 5pm", now, moscow)
	require.NotNil(t, due.At)
	assert.Equal(t, time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC), *due.At)
}

func TestDateParser_ISO(t *testing.T) {
	p := NewDateParser()
	moscow := mustLoad(t, "Europe/Moscow")

	due := p.Parse("pay rent 2026-11-01 10:30", now, moscow)
	require.NotNil(t, due.At)
	assert.Equal(t, "2026-11-01 10:30", due.Phrase)
	assert.Equal(t, time.Date(2026, 11, 1, 7, 30, 0, 0, time.UTC), *due.At)

	due = p.Parse("pay rent 2026-11-01", now, moscow)
	require.NotNil(t, due.At)
	assert.Equal(t, time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC), *due.At, "date alone means 09:00 local")
}

func TestDateParser_ProblemsDegradeToAbsent(t *testing.T) {
	p := NewDateParser()
	newYork := mustLoad(t, "America/New_York")

	due := p.Parse("file taxes 2026-03-08 02:30", now, newYork)
	assert.True(t, due.Found())
	assert.Nil(t, due.At)
	assert.ErrorIs(t, due.Problem, domain.ErrNonexistentLocalTime)
	assert.ErrorIs(t, due.Problem, domain.ErrAmbiguousLocalTime)

	due = p.Parse("party 2026-02-30 20:00", now, newYork)
	assert.True(t, due.Found())
	assert.Nil(t, due.At)
	assert.ErrorIs(t, due.Problem, ErrUnparsableDate)
}

func TestDateParser_NoDate(t *testing.T) {
	p := NewDateParser()
	for _, text := range []string{"", "buy milk", "🙂🙂🙂", "task 12", "\x00\xff"} {
		due := p.Parse(text, now, nil)
		assert.False(t, due.Found(), text)
		assert.Nil(t, due.At, text)
	}
}
