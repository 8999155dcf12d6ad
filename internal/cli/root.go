// Package cli holds the bot's cobra commands.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/config"
	"github.com/ykvlv/taskbot/internal/logger"
)

// NewRootCommand creates the `bot` command. Without a subcommand it runs the bot.
func NewRootCommand() *cobra.Command {
	run := NewRunCommand()

	cmd := &cobra.Command{
		Use:           "bot",
		Short:         "Telegram task reminder bot",
		Long:          "Keeps per-user task lists and sends reminders before tasks are due, in each user's own timezone.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}

	cmd.AddCommand(run)
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewTickCommand())
	return cmd
}

// setup loads configuration and builds the logger shared by every command.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}
