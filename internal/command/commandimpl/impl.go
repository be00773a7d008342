package commandimpl

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/output"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/ratelimit"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/scheduler"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/telegram"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
)

type Opts struct {
	fx.In

	Telegram  telegram.Client
	Storage   storage.Repository
	Registry  *platform.Registry
	Output    output.Writer
	Sheets    sheets.Client
	Scheduler scheduler.Client
	Logger    logger.Logger
	Config    *config.Config
}

type CommandImpl struct {
	Telegram  telegram.Client
	Storage   storage.Repository
	Registry  *platform.Registry
	Output    output.Writer
	Sheets    sheets.Client
	Scheduler scheduler.Client
	Logger    logger.Logger
	Config    *config.Config

	limiter  ratelimit.Limiter
	location *time.Location

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(opts Opts) *CommandImpl {
	loc, err := time.LoadLocation(opts.Config.App.Timezone)
	if err != nil {
		loc = time.Local
		opts.Logger.Warn("Failed to load configured timezone, using local", "timezone", opts.Config.App.Timezone, "error", err)
	}

	return &CommandImpl{
		Telegram:  opts.Telegram,
		Storage:   opts.Storage,
		Registry:  opts.Registry,
		Output:    opts.Output,
		Sheets:    opts.Sheets,
		Scheduler: opts.Scheduler,
		Logger:    opts.Logger.WithComponent("Command"),
		Config:    opts.Config,
		limiter:   ratelimit.NewInMemoryLimiter(1, time.Second, 5),
		location:  loc,
		sessions:  make(map[int64]*session),
	}
}

var _ command.Client = (*CommandImpl)(nil)

func (c *CommandImpl) HandleUpdates(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.Telegram.GetUpdatesChan(u)
	c.Logger.Info("Command handler started, listening for updates.")

	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Command handler shutting down.")
			c.Telegram.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				c.Logger.Warn("Telegram updates channel closed unexpectedly.")
				return errors.New("telegram updates channel closed")
			}

			go func(u tgbotapi.Update) {
				defer func() {
					if r := recover(); r != nil {
						c.Logger.Error("Panic recovered while processing an update", "panic", r, "stack", string(debug.Stack()))
					}
				}()

				c.processUpdate(ctx, u)
			}(update)
		}
	}
}

func (c *CommandImpl) processUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		chatID := update.CallbackQuery.Message.Chat.ID
		if !c.isAdmin(chatID) {
			return
		}
		if !c.limiter.Allow(chatID) {
			return
		}

		sess := c.session(chatID)
		sess.handling.Lock()
		defer sess.handling.Unlock()
		c.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	if !c.isAdmin(chatID) {
		if update.Message.IsCommand() {
			c.Telegram.SendMessage(chatID, "⛔ Нет доступа!")
		}
		return
	}
	if !c.limiter.Allow(chatID) {
		c.Telegram.SendMessage(chatID, "⏳ Слишком много запросов, подождите немного.")
		return
	}

	c.Logger.Info("Message received", "chatID", chatID, "text", update.Message.Text)

	sess := c.session(chatID)
	sess.handling.Lock()
	defer sess.handling.Unlock()

	if update.Message.IsCommand() {
		c.handleCommand(ctx, update.Message)
		return
	}

	c.handleInput(ctx, update.Message)
}

func (c *CommandImpl) isAdmin(chatID int64) bool {
	return lo.Contains(c.Config.Telegram.AdminIDs, chatID)
}

func (c *CommandImpl) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start", "menu":
		c.resetSession(chatID)
		c.sendMainMenu(chatID)
	default:
		c.Telegram.SendMessage(chatID, "Неизвестная команда. Используйте /start.")
	}
}

// handleInput routes a plain text message by the chat's conversation state.
func (c *CommandImpl) handleInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	sess := c.session(chatID)

	switch sess.state {
	case stateAwaitAmount:
		c.handleAmountInput(chatID, sess, message.Text)
	case stateAwaitURL:
		c.handleURLInput(ctx, chatID, sess, message.Text)
	case stateAwaitAccountURL:
		c.handleAccountURLInput(chatID, sess, message.Text)
	case stateAwaitDeleteID:
		c.handleDeleteIDInput(ctx, chatID, sess, message.Text)
	case stateAwaitRegularPeriod:
		c.handleRegularPeriodInput(ctx, chatID, sess, message.Text)
	case stateAwaitMonitorAccountsPeriod:
		c.handleMonitorAccountsPeriodInput(ctx, chatID, sess, message.Text)
	case stateAwaitMonitorPostsPeriod:
		c.handleMonitorPostsPeriodInput(ctx, chatID, sess, message.Text)
	default:
		c.sendMainMenu(chatID)
	}
}
