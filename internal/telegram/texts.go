package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// tzPresets are offered by /set_timezone without an argument.
var tzPresets = [][]string{
	{"Europe/Moscow", "Europe/Berlin"},
	{"Europe/London", "America/New_York"},
	{"Asia/Almaty", "Asia/Kolkata"},
	{"UTC"},
}

// taskKeyboard builds the Done/Delete buttons under a listed task.
func (r *Router) taskKeyboard(c chat, id int64) tgbotapi.InlineKeyboardMarkup {
	sid := strconv.FormatInt(id, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(r.t(c, "btn_done", nil), "done:"+sid),
			tgbotapi.NewInlineKeyboardButtonData(r.t(c, "btn_delete", nil), "delete:"+sid),
		),
	)
}

func (r *Router) tzPresetsKeyboard(c chat) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tzPresets)+1)
	for _, presets := range tzPresets {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(presets))
		for _, zone := range presets {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(zone, "tz:"+zone))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(r.t(c, "btn_tz_custom", nil), "tz:custom"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
