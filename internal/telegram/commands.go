package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/taskbot/internal/i18n"
)

var commandNames = []string{"start", "help", "list", "done", "delete", "set_timezone", "my_timezone"}

func botCommands(texts *i18n.Catalog, lang string) []tgbotapi.BotCommand {
	cmds := make([]tgbotapi.BotCommand, 0, len(commandNames))
	for _, name := range commandNames {
		cmds = append(cmds, tgbotapi.BotCommand{
			Command:     name,
			Description: texts.T(lang, "cmd_"+name, nil),
		})
	}
	return cmds
}

// RegisterCommands publishes the command menu: English by default, Russian
// for clients with a Russian interface.
func RegisterCommands(bot botAPI, texts *i18n.Catalog) error {
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(botCommands(texts, i18n.LanguageEn)...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	ru := tgbotapi.NewSetMyCommandsWithScopeAndLanguage(
		tgbotapi.NewBotCommandScopeDefault(), i18n.LanguageRu, botCommands(texts, i18n.LanguageRu)...)
	if _, err := bot.Request(ru); err != nil {
		return fmt.Errorf("set commands (%s): %w", i18n.LanguageRu, err)
	}
	return nil
}
