// Package janitor periodically removes long-finished tasks.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/clock"
)

// Purger is the store call the janitor needs.
type Purger interface {
	PurgeDone(ctx context.Context, completedBefore time.Time) (int64, error)
}

// Janitor deletes done tasks older than the retention on a cron schedule.
type Janitor struct {
	store     Purger
	clock     clock.Clock
	log       *zap.Logger
	retention time.Duration
	spec      string
	c         *cron.Cron
}

// New creates a janitor. A zero retention disables it.
func New(store Purger, clk clock.Clock, log *zap.Logger, retention time.Duration, spec string) *Janitor {
	if clk == nil {
		clk = clock.Real{}
	}
	if spec == "" {
		spec = "@every 1h"
	}
	return &Janitor{store: store, clock: clk, log: log, retention: retention, spec: spec}
}

// Enabled reports whether a retention is configured.
func (j *Janitor) Enabled() bool { return j.retention > 0 }

// Start schedules the purge job. It is a no-op when disabled.
func (j *Janitor) Start(ctx context.Context) error {
	if !j.Enabled() {
		j.log.Info("janitor disabled")
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	j.c = cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))
	if _, err := j.c.AddFunc(j.spec, func() { _, _ = j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cleanup schedule %q: %w", j.spec, err)
	}
	j.c.Start()
	j.log.Info("janitor started", zap.String("spec", j.spec), zap.Duration("retention", j.retention))
	return nil
}

// Stop waits for a running purge to finish.
func (j *Janitor) Stop() {
	if j.c != nil {
		<-j.c.Stop().Done()
		j.c = nil
	}
}

// RunOnce purges done tasks completed before now minus the retention.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	if !j.Enabled() {
		return 0, nil
	}
	cutoff := j.clock.Now().UTC().Add(-j.retention)
	n, err := j.store.PurgeDone(ctx, cutoff)
	if err != nil {
		j.log.Error("purge done tasks failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		j.log.Info("purged done tasks", zap.Int64("count", n), zap.Time("before", cutoff))
	}
	return n, nil
}
