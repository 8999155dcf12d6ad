package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ykvlv/taskbot/internal/domain"
	"github.com/ykvlv/taskbot/internal/scheduler"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/taskbot.db"`
	DefaultTZ string `envconfig:"DEFAULT_TZ" default:"UTC"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFile   string `envconfig:"LOG_FILE"`                 // empty = stdout only
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`

	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"1m"`
	ReminderGrace     time.Duration `envconfig:"REMINDER_GRACE" default:"10m"`
	ReminderIntervals []string      `envconfig:"REMINDER_INTERVALS" default:"24h,12h,6h,3h,1h,15m,due"`
	ReminderLang      string        `envconfig:"REMINDER_LANG" default:"en"`
	DeliveryPolicy    string        `envconfig:"DELIVERY_POLICY" default:"at_most_once"` // at_most_once|retry
	DispatchTimeout   time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10s"`
	SendRatePerSec    int           `envconfig:"SEND_RATE_PER_SEC" default:"20"`

	AutoDeleteDone bool          `envconfig:"AUTO_DELETE_DONE" default:"false"`
	DoneRetention  time.Duration `envconfig:"DONE_RETENTION" default:"720h"` // 0 disables cleanup
	CleanupCron    string        `envconfig:"CLEANUP_CRON" default:"@every 1h"`

	RedisAddr     string `envconfig:"REDIS_ADDR"` // empty = in-process tick lease
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	LLMAPIKey  string        `envconfig:"LLM_API_KEY"` // empty = rule-based parsing only
	LLMBaseURL string        `envconfig:"LLM_BASE_URL"`
	LLMModel   string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"15s"`
}

// Load reads an optional .env file and then environment variables into Config.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if _, err := c.Intervals(); err != nil {
		return fmt.Errorf("REMINDER_INTERVALS: %w", err)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("DELIVERY_POLICY: %w", err)
	}
	if _, err := domain.ValidateTZ(c.DefaultTZ); err != nil {
		return fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.ReminderGrace < 0 || c.DoneRetention < 0 {
		return fmt.Errorf("REMINDER_GRACE and DONE_RETENTION must not be negative")
	}
	return nil
}

// Intervals parses ReminderIntervals.
func (c Config) Intervals() (domain.IntervalSet, error) {
	return domain.ParseIntervals(c.ReminderIntervals)
}

// Policy parses DeliveryPolicy.
func (c Config) Policy() (scheduler.DeliveryPolicy, error) {
	return scheduler.ParsePolicy(c.DeliveryPolicy)
}

// RequireBot reports a missing BOT_TOKEN for commands that talk to Telegram.
func (c Config) RequireBot() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	return nil
}
