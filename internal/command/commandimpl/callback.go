package commandimpl

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
)

func (c *CommandImpl) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	c.Telegram.AnswerCallback(query.ID)

	chatID := query.Message.Chat.ID
	base, arg, _ := strings.Cut(query.Data, ":")

	switch base {
	case command.CallbackMainMenu:
		c.resetSession(chatID)
		c.sendMainMenu(chatID)

	case command.CallbackLoadJSON:
		c.startUnload(chatID, targetJSON)
	case command.CallbackLoadGoogle:
		c.startUnload(chatID, targetSheets)
	case command.CallbackParseAmount:
		c.askAmount(chatID)
	case command.CallbackParseAll:
		c.askURL(chatID, 0)
	case command.CallbackCancelParsing:
		c.cancelUnload(chatID)

	case command.CallbackAccounts:
		c.sendAccountsMenu(ctx, chatID)
	case command.CallbackAddAccount:
		if arg == "" {
			c.askAccountURL(chatID)
		} else {
			c.handleAccountModeChosen(ctx, chatID, arg)
		}
	case command.CallbackDeleteAccount:
		c.askDeleteID(chatID)
	case command.CallbackDeleteInvalid:
		c.deleteInvalid(ctx, chatID)

	case command.CallbackRegularParsing:
		c.sendRegularParsingMenu(ctx, chatID)
	case command.CallbackRegularToggle:
		c.toggleRegularParsing(ctx, chatID)
	case command.CallbackRegularPeriod:
		c.askRegularPeriod(chatID)
	case command.CallbackRegularRunNow:
		c.runRegularNow(ctx, chatID)

	case command.CallbackMonitorAcc:
		c.sendMonitorAccountsMenu(ctx, chatID)
	case command.CallbackMonitorAccTgl:
		c.toggleMonitorAccounts(ctx, chatID, arg)
	case command.CallbackMonitorAccPer:
		c.askMonitorAccountsPeriod(chatID)

	case command.CallbackMonitorPosts:
		c.sendMonitorPostsMenu(ctx, chatID)
	case command.CallbackMonitorPostTgl:
		c.toggleMonitorPosts(ctx, chatID, arg)
	case command.CallbackMonitorPostPer:
		c.askMonitorPostsPeriod(chatID)

	default:
		c.Logger.Warn("Unknown callback", "data", query.Data)
	}
}
