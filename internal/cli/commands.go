package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/app"
	"github.com/ykvlv/taskbot/internal/clock"
	"github.com/ykvlv/taskbot/internal/store"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll Telegram and send reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log, nil)
			if err != nil {
				log.Error("app init failed", zap.Error(err))
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			applied, err := store.Migrate(cmd.Context(), cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.DBPath, err)
			}
			log.Info("migrations applied", zap.String("path", cfg.DBPath), zap.Strings("versions", applied))
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		},
	}
}

// TickOptions holds flags for the tick command.
type TickOptions struct {
	At string
}

// NewTickCommand creates the tick command.
func NewTickCommand() *cobra.Command {
	opts := &TickOptions{}

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one reminder pass and exit",
		Long: `Run one reminder pass and exit.

With --at the pass evaluates reminders as if the current time were the given
instant. Reminders found due are really sent.

Example:
  bot tick
  bot tick --at 2026-10-18T09:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clk, err := opts.clock()
			if err != nil {
				return err
			}
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log, clk)
			if err != nil {
				return err
			}
			rep, err := a.Tick(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "evaluate at this RFC3339 instant instead of now")
	return cmd
}

func (o *TickOptions) clock() (clock.Clock, error) {
	if o.At == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, o.At)
	if err != nil {
		return nil, fmt.Errorf("invalid --at %q: %w", o.At, err)
	}
	return clock.NewFake(at.UTC()), nil
}
