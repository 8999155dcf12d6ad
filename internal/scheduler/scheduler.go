package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/clock"
	"github.com/ykvlv/taskbot/internal/domain"
	"github.com/ykvlv/taskbot/internal/lock"
	"github.com/ykvlv/taskbot/internal/store"
)

// tickLockKey guards a whole tick across processes.
const tickLockKey = "scheduler:tick"

// Dispatcher delivers rendered reminders. telegram.Sender implements it.
type Dispatcher interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Renderer turns a due interval into the text the owner sees.
type Renderer interface {
	RenderReminder(t *domain.Task, iv domain.Interval, loc *time.Location) string
}

// ZoneResolver returns the owner's zone. tz.Resolver implements it.
type ZoneResolver interface {
	Zone(ctx context.Context, userID int64) *time.Location
}

// Options tunes the reminder loop.
type Options struct {
	Intervals       domain.IntervalSet
	Grace           time.Duration
	PollInterval    time.Duration
	DispatchTimeout time.Duration
	Policy          DeliveryPolicy
}

// Scheduler periodically polls the store and dispatches due reminders.
type Scheduler struct {
	repo   store.TaskStore
	zones  ZoneResolver
	sender Dispatcher
	render Renderer
	log    *zap.Logger
	clock  clock.Clock
	locker lock.Locker
	opts   Options
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, e.g. for `bot tick --at`.
func WithClock(c clock.Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithLocker replaces the in-process tick lease.
func WithLocker(l lock.Locker) Option { return func(s *Scheduler) { s.locker = l } }

// New creates a Scheduler. Zero options fall back to the defaults.
func New(repo store.TaskStore, zones ZoneResolver, sender Dispatcher, render Renderer,
	log *zap.Logger, opts Options, extra ...Option) *Scheduler {
	if len(opts.Intervals) == 0 {
		opts.Intervals = domain.DefaultIntervals()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 10 * time.Second
	}
	if opts.Policy == "" {
		opts.Policy = AtMostOnce
	}
	s := &Scheduler{
		repo:   repo,
		zones:  zones,
		sender: sender,
		render: render,
		log:    log,
		clock:  clock.Real{},
		locker: lock.NewLocal(),
		opts:   opts,
	}
	for _, o := range extra {
		o(s)
	}
	return s
}

// Run ticks once immediately and then every poll interval until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started",
		zap.Duration("poll_interval", s.opts.PollInterval),
		zap.Duration("grace", s.opts.Grace),
		zap.Strings("intervals", s.opts.Intervals.Tags()),
		zap.String("policy", string(s.opts.Policy)),
	)
	s.runTick(ctx)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("tick failed", zap.Error(err))
	}
}

// Tick performs one scheduling cycle. Per-task failures are logged and
// counted; only a failure to list tasks aborts the tick.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	now := s.clock.Now().UTC()
	rep := Report{TickID: uuid.NewString(), At: now}
	log := s.log.With(zap.String("tick_id", rep.TickID))

	release, ok, err := s.locker.Acquire(ctx, tickLockKey, s.opts.PollInterval)
	if err != nil {
		return rep, fmt.Errorf("acquire tick lease: %w", err)
	}
	if !ok {
		rep.Skipped = true
		log.Debug("tick lease held elsewhere, skipping")
		return rep, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("release tick lease", zap.Error(err))
		}
	}()

	tasks, err := s.repo.ListSchedulable(ctx, now.Add(s.opts.Intervals.MaxLead()))
	if err != nil {
		return rep, fmt.Errorf("list schedulable: %w", err)
	}
	for i := range tasks {
		if ctx.Err() != nil {
			break
		}
		s.processTask(ctx, log, &tasks[i], now, &rep)
	}

	if rep.Sent+rep.Failed+rep.Expired+rep.Malformed > 0 {
		log.Info("tick done", rep.fields()...)
	} else {
		log.Debug("tick done", rep.fields()...)
	}
	return rep, nil
}

func (s *Scheduler) processTask(ctx context.Context, log *zap.Logger, t *domain.Task, now time.Time, rep *Report) {
	rep.Seen++
	log = log.With(zap.Int64("task_id", t.ID))

	if err := domain.ValidateForScheduling(t); err != nil {
		rep.Malformed++
		log.Warn("skipping task", zap.Error(err))
		return
	}

	plan := domain.Evaluate(t, s.opts.Intervals, now, s.opts.Grace)
	if plan.State == domain.StateSuppressed {
		rep.Suppressed++
		return
	}

	settled := true
	for _, iv := range plan.Expired {
		res, err := s.repo.MarkFired(ctx, t.ID, iv.Tag, domain.OutcomeExpired, now)
		switch {
		case err != nil:
			settled = false
			log.Error("mark expired", zap.String("tag", iv.Tag), zap.Error(err))
		case res == store.NotPending:
			rep.Suppressed++
			return
		case res == store.Claimed:
			rep.Expired++
			log.Info("reminder window passed", zap.String("tag", iv.Tag))
		}
	}

	if n := len(plan.Due); n > 0 {
		// Only the shortest lead is sent; the longer ones would repeat it.
		for _, iv := range plan.Due[:n-1] {
			res, err := s.repo.MarkFired(ctx, t.ID, iv.Tag, domain.OutcomeSuperseded, now)
			switch {
			case err != nil:
				settled = false
				log.Error("mark superseded", zap.String("tag", iv.Tag), zap.Error(err))
			case res == store.NotPending:
				rep.Suppressed++
				return
			case res == store.Claimed:
				rep.Superseded++
			}
		}
		if !s.deliver(ctx, log, t, plan.Due[n-1], now, rep) {
			settled = false
		}
	}

	if plan.Next == nil && settled {
		if err := s.repo.MarkExhausted(ctx, t.ID); err != nil {
			log.Error("mark exhausted", zap.Error(err))
			return
		}
		rep.Exhausted++
	}
}

// deliver claims iv and sends it. It reports false when the interval is left
// open for a later tick.
func (s *Scheduler) deliver(ctx context.Context, log *zap.Logger, t *domain.Task, iv domain.Interval, now time.Time, rep *Report) bool {
	log = log.With(zap.String("tag", iv.Tag))

	res, err := s.repo.MarkFired(ctx, t.ID, iv.Tag, domain.OutcomeSent, now)
	if err != nil {
		log.Error("claim reminder", zap.Error(err))
		return false
	}
	switch res {
	case store.AlreadyFired:
		rep.Raced++
		log.Debug("reminder already handled")
		return true
	case store.NotPending:
		rep.Suppressed++
		log.Debug("task left pending state before send")
		return true
	}

	loc := s.zones.Zone(ctx, t.OwnerID)
	text := s.render.RenderReminder(t, iv, loc)

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	err = s.sender.Send(sendCtx, t.ChatID, text)
	cancel()
	if err == nil {
		rep.Sent++
		log.Info("reminder sent", zap.Int64("chat_id", t.ChatID))
		return true
	}

	rep.Failed++
	// The claim must be settled even when the tick is being cancelled.
	wctx := context.WithoutCancel(ctx)
	if s.opts.Policy == Retry {
		rerr := s.repo.ReleaseFired(wctx, t.ID, iv.Tag)
		if rerr == nil {
			log.Warn("send failed, will retry", zap.Error(err))
			return false
		}
		log.Error("release claim", zap.Error(rerr))
	}
	if oerr := s.repo.SetOutcome(wctx, t.ID, iv.Tag, domain.OutcomeFailed); oerr != nil {
		log.Error("record failed outcome", zap.Error(oerr))
	}
	log.Warn("send failed", zap.Error(err))
	return true
}
