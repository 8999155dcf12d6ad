package telegram

import (
	"context"
	"errors"
	"html"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/domain"
	"github.com/ykvlv/taskbot/internal/intent"
	"github.com/ykvlv/taskbot/internal/service"
)

// clockLayout shows the current time with its zone abbreviation and offset.
const clockLayout = "2006-01-02 15:04:05 MST-0700"

type taskAction int

const (
	actionDone taskAction = iota
	actionDelete
)

// --- Generic helpers ---

func (r *Router) t(c chat, id string, data map[string]any) string {
	return r.deps.Texts.T(c.Lang, id, data)
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) reply(c chat, id string, data map[string]any) {
	r.sendText(c.ID, r.t(c, id, data))
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// fail logs err and tells the user something went wrong without details.
func (r *Router) fail(c chat, msg string, err error) {
	r.log.Error(msg, zap.Int64("user_id", c.UserID), zap.Error(err))
	r.reply(c, "generic_error", nil)
}

func (r *Router) now() time.Time { return r.deps.Clock.Now().UTC() }

// --- Core commands ---

func (r *Router) handleStart(c chat) {
	r.reply(c, "start", map[string]any{"Name": c.Name})
}

func (r *Router) handleHelp(c chat) {
	r.sendText(c.ID, r.deps.Texts.Help(c.Lang, r.deps.Intervals))
}

func (r *Router) handleList(ctx context.Context, c chat, status domain.Status) {
	tasks, err := r.deps.Tasks.List(ctx, c.UserID, status)
	if err != nil {
		r.fail(c, "list tasks failed", err)
		return
	}
	if len(tasks) == 0 {
		if status == domain.StatusDone {
			r.reply(c, "list_empty_done", nil)
		} else {
			r.reply(c, "list_empty", nil)
		}
		return
	}

	loc := r.deps.Zones.Zone(ctx, c.UserID)
	header := "list_header"
	if status == domain.StatusDone {
		header = "list_header_done"
	}
	r.reply(c, header, map[string]any{"Zone": loc.String()})

	now := r.now()
	for i := range tasks {
		if i == service.MaxListed {
			r.reply(c, "list_truncated", map[string]any{"Max": service.MaxListed})
			break
		}
		msg := tgbotapi.NewMessage(c.ID, r.taskText(c, &tasks[i], loc, now))
		if tasks[i].Status == domain.StatusPending {
			msg.ReplyMarkup = r.taskKeyboard(c, tasks[i].ID)
		}
		if _, err := r.bot.Send(msg); err != nil {
			r.log.Warn("send task failed", zap.Int64("task_id", tasks[i].ID), zap.Error(err))
		}
	}
}

// taskText renders one task line in loc, with the next reminder for pending tasks.
func (r *Router) taskText(c chat, t *domain.Task, loc *time.Location, now time.Time) string {
	text := r.t(c, "task_line", map[string]any{"ID": t.ID, "Description": t.Description})
	if t.DueAt == nil {
		return text
	}
	text += r.t(c, "task_due", map[string]any{"Due": domain.FormatLocal(*t.DueAt, loc)})
	if t.Status == domain.StatusPending {
		plan := domain.Evaluate(t, r.deps.Intervals, now, r.deps.Grace)
		if plan.Next != nil {
			text += r.t(c, "task_next", map[string]any{"Next": domain.FormatLocal(*plan.Next, loc)})
		}
	}
	return text
}

func (r *Router) handleDoneCommand(ctx context.Context, c chat, args string) {
	id, ok := parseTaskID(args)
	if !ok {
		r.reply(c, "usage_done", nil)
		return
	}
	r.completeTask(ctx, c, id)
}

func (r *Router) handleDeleteCommand(ctx context.Context, c chat, args string) {
	id, ok := parseTaskID(args)
	if !ok {
		r.reply(c, "usage_delete", nil)
		return
	}
	r.deleteTask(ctx, c, id)
}

func (r *Router) completeTask(ctx context.Context, c chat, id int64) {
	t, err := r.deps.Tasks.Complete(ctx, c.UserID, id)
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		r.reply(c, "not_found", map[string]any{"ID": id})
	case errors.Is(err, domain.ErrAlreadyDone):
		r.reply(c, "done_already", map[string]any{"ID": id, "Description": t.Description})
	case err != nil:
		r.fail(c, "complete task failed", err)
	default:
		r.reply(c, "done_ok", map[string]any{"ID": id, "Description": t.Description})
	}
}

func (r *Router) deleteTask(ctx context.Context, c chat, id int64) {
	t, err := r.deps.Tasks.Delete(ctx, c.UserID, id)
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		r.reply(c, "not_found", map[string]any{"ID": id})
	case err != nil:
		r.fail(c, "delete task failed", err)
	default:
		r.reply(c, "deleted_ok", map[string]any{"ID": id, "Description": t.Description})
	}
}

// --- Task buttons ---

func (r *Router) handleTaskButton(ctx context.Context, c chat, cb *tgbotapi.CallbackQuery, action taskAction, rawID string) {
	_ = r.answerCallback(cb.ID, "")

	id, ok := parseTaskID(rawID)
	if !ok {
		r.log.Warn("bad callback data", zap.String("data", cb.Data))
		return
	}
	task, err := r.deps.Tasks.Get(ctx, c.UserID, id)
	if errors.Is(err, domain.ErrTaskNotFound) {
		r.editText(c.ID, cb.Message.MessageID, html.EscapeString(r.t(c, "not_found", map[string]any{"ID": id})))
		return
	}
	if err != nil {
		r.fail(c, "get task failed", err)
		return
	}

	loc := r.deps.Zones.Zone(ctx, c.UserID)
	struck := "<s>" + html.EscapeString(r.taskText(c, task, loc, r.now())) + "</s>"

	switch action {
	case actionDone:
		if _, err := r.deps.Tasks.Complete(ctx, c.UserID, id); err != nil && !errors.Is(err, domain.ErrAlreadyDone) {
			if errors.Is(err, domain.ErrTaskNotFound) {
				r.editText(c.ID, cb.Message.MessageID, html.EscapeString(r.t(c, "not_found", map[string]any{"ID": id})))
				return
			}
			r.fail(c, "complete task failed", err)
			return
		}
		r.editText(c.ID, cb.Message.MessageID, r.t(c, "done_edit", map[string]any{"Text": struck}))
	case actionDelete:
		if _, err := r.deps.Tasks.Delete(ctx, c.UserID, id); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				r.editText(c.ID, cb.Message.MessageID, html.EscapeString(r.t(c, "not_found", map[string]any{"ID": id})))
				return
			}
			r.fail(c, "delete task failed", err)
			return
		}
		r.editText(c.ID, cb.Message.MessageID, r.t(c, "deleted_edit", map[string]any{"Text": struck}))
	}
}

// editText replaces a listed task message; the inline keyboard goes away with it.
func (r *Router) editText(chatID int64, messageID int, htmlText string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, htmlText)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := r.bot.Send(edit); err != nil {
		r.log.Debug("edit message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// --- Timezone flow ---

func (r *Router) handleSetTimezone(ctx context.Context, c chat, args string) {
	if args == "" {
		msg := tgbotapi.NewMessage(c.ID, r.t(c, "tz_choose", nil))
		msg.ReplyMarkup = r.tzPresetsKeyboard(c)
		if _, err := r.bot.Send(msg); err != nil {
			r.log.Warn("send tz presets failed", zap.Error(err))
		}
		return
	}
	r.updateTZ(ctx, c, args)
}

func (r *Router) handleTZCallback(ctx context.Context, c chat, val, cbID string) {
	_ = r.answerCallback(cbID, "")
	if val == "custom" {
		r.reply(c, "tz_custom_prompt", nil)
		r.setPending(c.ID, pendingTZ)
		return
	}
	r.updateTZ(ctx, c, val)
}

func (r *Router) updateTZ(ctx context.Context, c chat, zone string) {
	loc, err := r.deps.Zones.SetZone(ctx, c.UserID, zone)
	if errors.Is(err, domain.ErrInvalidZone) {
		r.reply(c, "tz_invalid", map[string]any{"Zone": zone})
		return
	}
	if err != nil {
		r.fail(c, "set timezone failed", err)
		return
	}
	r.reply(c, "tz_set", map[string]any{"Zone": loc.String(), "Now": r.now().In(loc).Format(clockLayout)})
}

func (r *Router) handleMyTimezone(ctx context.Context, c chat) {
	loc := r.deps.Zones.Zone(ctx, c.UserID)
	r.reply(c, "tz_show", map[string]any{"Zone": loc.String(), "Now": r.now().In(loc).Format(clockLayout)})
}

// --- Free-form dispatcher ---

func (r *Router) handleFreeForm(ctx context.Context, c chat, text string) {
	if text == "" {
		return
	}
	if r.getPending(c.ID) == pendingTZ {
		r.clearPending(c.ID)
		r.updateTZ(ctx, c, text)
		return
	}

	loc := r.deps.Zones.Zone(ctx, c.UserID)
	in := r.deps.Intents.Translate(ctx, intent.Request{
		Text: text, UserID: c.UserID, Location: loc, Now: r.now(),
	})
	r.log.Debug("intent", zap.Int64("user_id", c.UserID), zap.String("kind", string(in.Kind)))

	switch in.Kind {
	case intent.KindCreate:
		r.createTask(ctx, c, in, loc)
	case intent.KindList:
		r.handleList(ctx, c, in.Status)
	case intent.KindComplete:
		r.completeTask(ctx, c, in.TaskID)
	case intent.KindDelete:
		r.deleteTask(ctx, c, in.TaskID)
	default:
		r.reply(c, "unrecognized", nil)
	}
}

func (r *Router) createTask(ctx context.Context, c chat, in intent.Intent, loc *time.Location) {
	t, err := r.deps.Tasks.Create(ctx, c.UserID, c.ID, in.Description, in.Due)
	if errors.Is(err, domain.ErrEmptyDescription) {
		r.reply(c, "empty_description", nil)
		return
	}
	if err != nil {
		r.fail(c, "create task failed", err)
		return
	}

	text := r.t(c, "created", map[string]any{"ID": t.ID, "Description": t.Description})
	switch {
	case t.DueAt != nil:
		due := domain.FormatLocal(*t.DueAt, loc)
		text += r.t(c, "created_due", map[string]any{"Due": due, "Zone": loc.String()})
		if !t.DueAt.After(r.now()) {
			text += r.t(c, "created_past_due", map[string]any{"Due": due})
		}
	case errors.Is(in.DueProblem, domain.ErrAmbiguousLocalTime):
		text += r.t(c, "created_gap_due", map[string]any{"Phrase": in.DuePhrase, "Zone": loc.String()})
	case in.DuePhrase != "":
		text += r.t(c, "created_bad_due", map[string]any{"Phrase": in.DuePhrase})
	default:
		text += r.t(c, "created_no_due", nil)
	}
	r.sendText(c.ID, text)
}

func parseTaskID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
