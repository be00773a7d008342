package commandimpl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/formatter"
)

func (c *CommandImpl) startUnload(chatID int64, target unloadTarget) {
	sess := c.session(chatID)
	sess.state = stateIdle
	sess.target = target
	sess.amount = 0

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Ввести количество", command.CallbackParseAmount),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Все посты", command.CallbackParseAll),
		),
	)
	c.Telegram.SendMessageWithKeyboard(chatID, "Выберите количество постов:", keyboard)
}

func (c *CommandImpl) askAmount(chatID int64) {
	c.session(chatID).state = stateAwaitAmount
	c.Telegram.SendMessage(chatID, "Введите количество постов:")
}

func (c *CommandImpl) handleAmountInput(chatID int64, sess *session, text string) {
	amount, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || amount <= 0 {
		c.Telegram.SendMessage(chatID, "⚠️ Неверное количество постов. Попробуйте ещё раз:")
		return
	}
	sess.state = stateIdle
	c.askURL(chatID, amount)
}

func (c *CommandImpl) askURL(chatID int64, amount int) {
	sess := c.session(chatID)
	sess.amount = amount
	sess.state = stateAwaitURL
	c.Telegram.SendMessage(chatID, "Введите ссылку на пользователя:")
}

func (c *CommandImpl) handleURLInput(ctx context.Context, chatID int64, sess *session, text string) {
	ref, err := platform.ParseURL(text)
	if err != nil {
		c.Telegram.SendMessage(chatID, "❌ Ошибка: Неверные аргументы или формат URL. Попробуйте ещё раз:")
		return
	}

	sess.state = stateIdle
	unloadCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	sess.cancel = cancel
	c.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			c.mu.Lock()
			sess.cancel = nil
			c.mu.Unlock()
		}()
		c.runUnload(unloadCtx, chatID, sess.target, sess.amount, ref)
	}()
}

func (c *CommandImpl) cancelUnload(chatID int64) {
	c.mu.Lock()
	sess, ok := c.sessions[chatID]
	if ok && sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	c.mu.Unlock()

	keyboard := mainMenuKeyboard()
	c.Telegram.SendMessageWithKeyboard(chatID, "🛑 Парсинг отменён.", keyboard)
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Остановить", command.CallbackCancelParsing),
		),
	)
}

// runUnload performs one interactive unload: resolve the profile, fetch
// up to amount posts and deliver them to the selected sink. The context
// is cancelled by the Остановить button.
func (c *CommandImpl) runUnload(ctx context.Context, chatID int64, target unloadTarget, amount int, ref platform.Ref) {
	messageID, err := c.Telegram.SendMessageWithKeyboard(chatID,
		fmt.Sprintf("⏳ Начат парсинг постов для пользователя %s...", ref.Username), cancelKeyboard())
	if err != nil {
		return
	}

	adapter, err := c.Registry.ForDomain(ref.Domain)
	if err != nil {
		c.Telegram.EditMessageText(chatID, messageID, fmt.Sprintf("❌ Платформа не поддерживается: %s", ref.Domain))
		return
	}

	identity, err := adapter.ResolveIdentity(ctx, ref)
	if err != nil {
		c.Logger.Error("Failed to resolve profile", "url", ref.Username, "error", err)
		c.Telegram.EditMessageText(chatID, messageID, "⚠️ Ошибка при получении постов: пользователь не найден или произошёл сбой.")
		return
	}
	if identity.UserID != 0 {
		ref.UserID = identity.UserID
	}

	posts, err := adapter.FetchPosts(ctx, ref, platform.FetchOpts{Limit: amount})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.Logger.Error("Failed to fetch posts", "username", ref.Username, "error", err)
		c.Telegram.EditMessageText(chatID, messageID, "⚠️ Ошибка при получении постов: пользователь не найден или произошёл сбой.")
		return
	}

	switch target {
	case targetJSON:
		c.unloadToJSON(ctx, chatID, ref, posts)
	case targetSheets:
		c.unloadToSheets(ctx, chatID, ref, posts)
	}
}

func (c *CommandImpl) unloadToJSON(ctx context.Context, chatID int64, ref platform.Ref, posts []domain.Post) {
	c.Telegram.SendMessageWithKeyboard(chatID,
		fmt.Sprintf("📥 Получены данные %s постов для пользователя %s. Сохраняю на сервер...", formatter.FormatNumber(len(posts)), ref.Username),
		cancelKeyboard())

	path, err := c.Output.WritePosts(ctx, ref.Domain, ref.Username, posts, 0)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.Logger.Error("Failed to write posts to disk", "username", ref.Username, "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Ошибка при сохранении постов на сервер.")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.Logger.Error("Failed to read aggregated posts file", "path", path, "error", err)
		c.Telegram.SendMessage(chatID, fmt.Sprintf("✅ Все данные пользователя %s успешно сохранены.", ref.Username))
		return
	}

	caption := fmt.Sprintf("✅ Все данные пользователя %s успешно сохранены.", ref.Username)
	if err := c.Telegram.SendDocument(chatID, "posts.json", data, caption); err != nil {
		c.Logger.Error("Failed to send posts document", "error", err)
	}
	c.sendMainMenu(chatID)
}

func (c *CommandImpl) unloadToSheets(ctx context.Context, chatID int64, ref platform.Ref, posts []domain.Post) {
	c.Telegram.SendMessage(chatID, fmt.Sprintf("📤 Получены данные %s постов. Сохраняю в Google таблицу...", formatter.FormatNumber(len(posts))))

	title := sheets.Title(platform.SheetPrefix(ref.Domain), ref.Username)
	if err := c.Sheets.UpdateUserPosts(ctx, title, posts, time.Now().In(c.location)); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.Logger.Error("Failed to unload posts to sheets", "title", title, "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Ошибка при выгрузке постов в Google таблицу.")
		return
	}

	c.Telegram.SendMessageWithKeyboard(chatID,
		fmt.Sprintf("✅ Все данные пользователя %s успешно сохранены в Google таблицу.", ref.Username),
		mainMenuKeyboard())
}
