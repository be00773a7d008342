package commandimpl

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Выгрузить данные в JSON", command.CallbackLoadJSON),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Выгрузить данные в Google таблицы", command.CallbackLoadGoogle),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Аккаунты", command.CallbackAccounts),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Парсинг по расписанию", command.CallbackRegularParsing),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Мониторинг аккаунтов", command.CallbackMonitorAcc),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Мониторинг постов", command.CallbackMonitorPosts),
		),
	)
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Назад в меню", command.CallbackMainMenu),
	)
}

func (c *CommandImpl) sendMainMenu(chatID int64) {
	if _, err := c.Telegram.SendMessageWithKeyboard(chatID, "📋 Главное меню:", mainMenuKeyboard()); err != nil {
		c.Logger.Error("Failed to send main menu", "chatID", chatID, "error", err)
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "вкл"
	}
	return "выкл"
}

func toggleLabel(name string, enabled bool) string {
	if enabled {
		return "🟢 " + name
	}
	return "🔴 " + name
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func dataWithArg(base, arg string) string {
	return base + ":" + arg
}
