package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/clock"
	"github.com/ykvlv/taskbot/internal/domain"
	"github.com/ykvlv/taskbot/internal/i18n"
	"github.com/ykvlv/taskbot/internal/intent"
)

// Pending state keys used in conversational flows.
const (
	pendingTZ = "await_tz_text"
)

// botAPI is the part of *tgbotapi.BotAPI the package uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Tasks is implemented by service.TaskService.
type Tasks interface {
	Create(ctx context.Context, ownerID, chatID int64, description string, due *time.Time) (*domain.Task, error)
	List(ctx context.Context, ownerID int64, status domain.Status) ([]domain.Task, error)
	Get(ctx context.Context, ownerID, id int64) (*domain.Task, error)
	Complete(ctx context.Context, ownerID, id int64) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, id int64) (*domain.Task, error)
}

// Zones is implemented by tz.Resolver.
type Zones interface {
	Zone(ctx context.Context, userID int64) *time.Location
	SetZone(ctx context.Context, userID int64, zone string) (*time.Location, error)
}

// Deps are the services a Router talks to.
type Deps struct {
	Tasks     Tasks
	Zones     Zones
	Intents   intent.Translator
	Texts     *i18n.Catalog
	Clock     clock.Clock
	Intervals domain.IntervalSet
	Grace     time.Duration
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot   botAPI
	log   *zap.Logger
	deps  Deps
	state map[int64]string // chatID -> pending state
	mu    sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot botAPI, log *zap.Logger, deps Deps) *Router {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if len(deps.Intervals) == 0 {
		deps.Intervals = domain.DefaultIntervals()
	}
	return &Router{
		bot:   bot,
		log:   log,
		deps:  deps,
		state: make(map[int64]string),
	}
}

// chat is who an update came from and how to talk back.
type chat struct {
	ID     int64
	UserID int64
	Lang   string
	Name   string
}

func (r *Router) newChat(chatID int64, from *tgbotapi.User) chat {
	c := chat{ID: chatID, UserID: chatID, Lang: i18n.LanguageEn}
	if from != nil {
		c.UserID = from.ID
		c.Lang = r.deps.Texts.Lang(from.LanguageCode)
		c.Name = strings.TrimSpace(from.FirstName)
		if c.Name == "" {
			c.Name = from.UserName
		}
	}
	return c
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		if msg.Chat == nil {
			return
		}
		c := r.newChat(msg.Chat.ID, msg.From)

		if msg.IsCommand() {
			r.clearPending(c.ID)
			args := strings.TrimSpace(msg.CommandArguments())
			switch msg.Command() {
			case "start":
				r.handleStart(c)
			case "help":
				r.handleHelp(c)
			case "list":
				r.handleList(ctx, c, domain.StatusPending)
			case "done":
				r.handleDoneCommand(ctx, c, args)
			case "delete":
				r.handleDeleteCommand(ctx, c, args)
			case "set_timezone":
				r.handleSetTimezone(ctx, c, args)
			case "my_timezone":
				r.handleMyTimezone(ctx, c)
			default:
				r.reply(c, "unrecognized", nil)
			}
			return
		}

		r.handleFreeForm(ctx, c, strings.TrimSpace(msg.Text))
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil {
			_ = r.answerCallback(cb.ID, "")
			return
		}
		c := r.newChat(cb.Message.Chat.ID, cb.From)
		data := cb.Data

		switch {
		case strings.HasPrefix(data, "done:"):
			r.handleTaskButton(ctx, c, cb, actionDone, strings.TrimPrefix(data, "done:"))
		case strings.HasPrefix(data, "delete:"):
			r.handleTaskButton(ctx, c, cb, actionDelete, strings.TrimPrefix(data, "delete:"))
		case strings.HasPrefix(data, "tz:"):
			r.handleTZCallback(ctx, c, strings.TrimPrefix(data, "tz:"), cb.ID)
		default:
			// Unknown callback: ignore silently.
			_ = r.answerCallback(cb.ID, "")
		}
	}
}

// Poll handles updates one at a time until ctx is canceled or the channel closes.
func (r *Router) Poll(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			r.HandleUpdate(ctx, upd)
		}
	}
}
