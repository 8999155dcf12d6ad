package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/clock"
	"github.com/ykvlv/taskbot/internal/config"
	"github.com/ykvlv/taskbot/internal/health"
	"github.com/ykvlv/taskbot/internal/i18n"
	"github.com/ykvlv/taskbot/internal/intent"
	"github.com/ykvlv/taskbot/internal/janitor"
	"github.com/ykvlv/taskbot/internal/lock"
	"github.com/ykvlv/taskbot/internal/scheduler"
	"github.com/ykvlv/taskbot/internal/service"
	"github.com/ykvlv/taskbot/internal/store"
	"github.com/ykvlv/taskbot/internal/telegram"
	"github.com/ykvlv/taskbot/internal/tz"
)

// App owns the bot's long-lived components.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	texts   *i18n.Catalog
	router  *telegram.Router
	sched   *scheduler.Scheduler
	janitor *janitor.Janitor
	health  *health.Server
	closers []func() error
}

// New connects to Telegram, opens the database and wires every component.
// clk is nil in production; `bot tick --at` passes a fixed clock.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, clk clock.Clock) (*App, error) {
	if err := cfg.RequireBot(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real{}
	}
	intervals, err := cfg.Intervals()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	a := &App{cfg: cfg, log: log, bot: bot}

	repo, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	a.closers = append(a.closers, repo.Close)
	log.Info("sqlite ready", zap.String("path", cfg.DBPath))

	zones, err := tz.NewResolver(repo, log, cfg.DefaultTZ)
	if err != nil {
		a.Close()
		return nil, err
	}
	texts, err := i18n.New()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.texts = texts

	translator, err := newTranslator(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	tasks := service.NewTaskService(repo, clk, log, cfg.AutoDeleteDone)
	a.router = telegram.NewRouter(bot, log, telegram.Deps{
		Tasks:     tasks,
		Zones:     zones,
		Intents:   translator,
		Texts:     texts,
		Clock:     clk,
		Intervals: intervals,
		Grace:     cfg.ReminderGrace,
	})

	locker, err := a.newLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.sched = scheduler.New(repo, zones,
		telegram.NewSender(bot, cfg.SendRatePerSec),
		i18n.Reminders{Catalog: texts, Lang: texts.Lang(cfg.ReminderLang)},
		log,
		scheduler.Options{
			Intervals:       intervals,
			Grace:           cfg.ReminderGrace,
			PollInterval:    cfg.PollInterval,
			DispatchTimeout: cfg.DispatchTimeout,
			Policy:          policy,
		},
		scheduler.WithClock(clk),
		scheduler.WithLocker(locker),
	)
	a.janitor = janitor.New(repo, clk, log, cfg.DoneRetention, cfg.CleanupCron)
	a.health = health.NewServer(cfg.HTTPAddr, repo, log)
	return a, nil
}

func newTranslator(cfg config.Config, log *zap.Logger) (intent.Translator, error) {
	dates := intent.NewDateParser()
	rules := intent.NewRules(dates)
	if cfg.LLMAPIKey == "" {
		log.Info("intent parsing: rules")
		return rules, nil
	}
	llm, err := intent.NewLLM(intent.LLMConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	}, dates, rules, log)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	log.Info("intent parsing: llm with rule fallback", zap.String("model", cfg.LLMModel))
	return llm, nil
}

func (a *App) newLocker(ctx context.Context) (lock.Locker, error) {
	if a.cfg.RedisAddr == "" {
		return lock.NewLocal(), nil
	}
	r, err := lock.NewRedis(ctx, lock.RedisOptions{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.closers = append(a.closers, r.Close)
	a.log.Info("tick lease: redis", zap.String("addr", a.cfg.RedisAddr))
	return r, nil
}

// Run serves updates, reminders and probes until SIGINT/SIGTERM or ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	a.log.Info("starting taskbot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("http", a.cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telegram.RegisterCommands(a.bot, a.texts); err != nil {
		a.log.Warn("register commands failed", zap.Error(err))
	}
	if err := a.janitor.Start(ctx); err != nil {
		return err
	}
	defer a.janitor.Stop()

	a.health.Start()
	defer a.health.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sched.Run(ctx)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	a.router.Poll(ctx, a.bot.GetUpdatesChan(u))

	a.log.Info("shutdown signal received")
	a.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// Tick runs a single scheduler pass and releases resources.
func (a *App) Tick(ctx context.Context) (scheduler.Report, error) {
	defer a.Close()
	return a.sched.Tick(ctx)
}

// Close releases the database and lease connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
