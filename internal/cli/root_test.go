package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "bot", cmd.Use)
	assert.NotNil(t, cmd.RunE, "bare `bot` runs the bot")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"run", "migrate", "tick"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestTickAtFlag(t *testing.T) {
	cmd := NewRootCommand()
	tick, _, err := cmd.Find([]string{"tick"})
	require.NoError(t, err)
	flag := tick.Flags().Lookup("at")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)

	clk, err := (&TickOptions{At: "2026-10-18T12:00:00+03:00"}).clock()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), clk.Now())

	clk, err = (&TickOptions{}).clock()
	require.NoError(t, err)
	assert.Nil(t, clk)

	_, err = (&TickOptions{At: "tomorrow"}).clock()
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "bot.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "applied 1 migration(s)\n", out.String())

	out.Reset()
	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "applied 0 migration(s)\n", out.String())
}

func TestRunRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "bot.db"))
	t.Setenv("LOG_LEVEL", "error")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"tick"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}
