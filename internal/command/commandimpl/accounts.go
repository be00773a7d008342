package commandimpl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	pkgerrors "github.com/dmvasilenko/blog-parser-telegram-bot/pkg/errors"
)

func (c *CommandImpl) sendAccountsMenu(ctx context.Context, chatID int64) {
	accounts, err := c.Storage.Accounts(ctx)
	if err != nil {
		c.Logger.Error("Failed to load accounts", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось загрузить список аккаунтов.")
		return
	}

	lines := []string{"👥 Отслеживаемые аккаунты:"}
	if len(accounts) == 0 {
		lines = append(lines, "— список пуст —")
	}
	for _, account := range accounts {
		status := ""
		if account.IsBlocked {
			status = " 🚫"
		}
		lines = append(lines, fmt.Sprintf("%d. %s [%s]%s", account.ID, account.URL, account.Mode, status))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить", command.CallbackAddAccount),
			tgbotapi.NewInlineKeyboardButtonData("➖ Удалить", command.CallbackDeleteAccount),
		),
		backRow(),
	)
	c.Telegram.SendMessageWithKeyboard(chatID, joinLines(lines), keyboard)
}

func (c *CommandImpl) askAccountURL(chatID int64) {
	c.session(chatID).state = stateAwaitAccountURL
	c.Telegram.SendMessage(chatID, "Введите ссылку на пользователя:")
}

func (c *CommandImpl) handleAccountURLInput(chatID int64, sess *session, text string) {
	if _, err := platform.ParseURL(text); err != nil {
		c.Telegram.SendMessage(chatID, "❌ Ошибка: Неверные аргументы или формат URL. Попробуйте ещё раз:")
		return
	}

	sess.pendingURL = strings.TrimSpace(text)
	sess.state = stateAwaitAccountMode

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Google таблица", dataWithArg(command.CallbackAddAccount, string(domain.ModeSheet))),
			tgbotapi.NewInlineKeyboardButtonData("Сервер", dataWithArg(command.CallbackAddAccount, string(domain.ModeServer))),
			tgbotapi.NewInlineKeyboardButtonData("Оба", dataWithArg(command.CallbackAddAccount, string(domain.ModeBoth))),
		),
	)
	c.Telegram.SendMessageWithKeyboard(chatID, "Выберите режим выгрузки:", keyboard)
}

func (c *CommandImpl) handleAccountModeChosen(ctx context.Context, chatID int64, rawMode string) {
	sess := c.session(chatID)
	if sess.state != stateAwaitAccountMode || sess.pendingURL == "" {
		c.sendMainMenu(chatID)
		return
	}

	mode := domain.ParseMode(rawMode)
	if !mode.Valid() {
		c.Telegram.SendMessage(chatID, "⚠️ Неизвестный режим выгрузки.")
		return
	}

	ref, err := platform.ParseURL(sess.pendingURL)
	if err != nil {
		c.Telegram.SendMessage(chatID, "❌ Ошибка: Неверные аргументы или формат URL.")
		return
	}

	adapter, err := c.Registry.ForDomain(ref.Domain)
	if err != nil {
		c.Telegram.SendMessage(chatID, fmt.Sprintf("❌ Платформа не поддерживается: %s", ref.Domain))
		return
	}

	// Osnova accounts added by bare handle get their numeric id here,
	// otherwise the post-monitoring loop cannot fetch their timeline.
	identity, err := adapter.ResolveIdentity(ctx, ref)
	if err != nil {
		c.Logger.Error("Failed to resolve profile", "url", sess.pendingURL, "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось получить данные пользователя. Проверьте ссылку и попробуйте ещё раз:")
		return
	}
	if identity.UserID != 0 {
		ref.UserID = identity.UserID
	}

	account := domain.Account{
		URL:      sess.pendingURL,
		Mode:     mode,
		Domain:   ref.Domain,
		Username: ref.Username,
		UserID:   ref.UserID,
		Name:     identity.Name,
	}

	added, err := c.Storage.AddAccount(ctx, account)
	if err != nil {
		if pkgerrors.IsAlreadyExists(err) {
			c.Telegram.SendMessage(chatID, "⚠️ Такой аккаунт уже отслеживается.")
		} else {
			c.Logger.Error("Failed to add account", "url", account.URL, "error", err)
			c.Telegram.SendMessage(chatID, "⚠️ Не удалось добавить аккаунт.")
		}
		return
	}

	sess.state = stateIdle
	sess.pendingURL = ""
	c.Logger.Info("Account added", "accountID", added.ID, "url", added.URL)
	c.Telegram.SendMessage(chatID, fmt.Sprintf("✅ Аккаунт %s добавлен (id %d).", added.URL, added.ID))
	c.sendAccountsMenu(ctx, chatID)
}

func (c *CommandImpl) askDeleteID(chatID int64) {
	c.session(chatID).state = stateAwaitDeleteID
	c.Telegram.SendMessage(chatID, "Введите id аккаунта для удаления:")
}

func (c *CommandImpl) handleDeleteIDInput(ctx context.Context, chatID int64, sess *session, text string) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		c.Telegram.SendMessage(chatID, "⚠️ Неверный id. Попробуйте ещё раз:")
		return
	}

	if err := c.Storage.DeleteAccount(ctx, id); err != nil {
		if pkgerrors.IsNotFound(err) {
			c.Telegram.SendMessage(chatID, "⚠️ Аккаунт с таким id не найден.")
		} else {
			c.Logger.Error("Failed to delete account", "accountID", id, "error", err)
			c.Telegram.SendMessage(chatID, "⚠️ Не удалось удалить аккаунт.")
		}
		return
	}

	sess.state = stateIdle
	c.Logger.Info("Account deleted", "accountID", id)
	c.Telegram.SendMessage(chatID, "✅ Аккаунт удалён.")
	c.sendAccountsMenu(ctx, chatID)
}

// deleteInvalid drops the whole failed batch from the previous bulk run.
func (c *CommandImpl) deleteInvalid(ctx context.Context, chatID int64) {
	removed, err := c.Storage.DeleteLastFailed(ctx)
	if err != nil {
		c.Logger.Error("Failed to delete invalid accounts", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось удалить невалидные аккаунты.")
		return
	}

	c.Logger.Info("Invalid accounts deleted", "count", removed)
	keyboard := mainMenuKeyboard()
	c.Telegram.SendMessageWithKeyboard(chatID, fmt.Sprintf("🗑 Удалено аккаунтов: %d.", removed), keyboard)
}
