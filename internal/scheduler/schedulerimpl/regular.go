package schedulerimpl

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

// runRegularParsing is one pass of the scheduled bulk re-scrape:
// every non-blocked account is parsed in its own mode, failures are
// promoted to blocked and collected into the failed batch, and a digest
// goes out to the administrators.
func (s *SchedulerImpl) runRegularParsing(ctx context.Context) {
	accounts, err := s.Storage.Accounts(ctx)
	if err != nil {
		s.Logger.Error("Failed to load accounts", "error", err)
		return
	}

	s.Logger.Info("Starting scheduled parsing", "accounts", len(accounts))
	if err := s.Storage.TouchRegularParsingRun(ctx, s.now()); err != nil {
		s.Logger.Error("Failed to persist last run timestamp", "error", err)
	}

	active := lo.Reject(accounts, func(a domain.Account, _ int) bool { return a.IsBlocked })
	results := s.Parser.ParseAll(ctx, active)

	var failed []domain.Account
	successCount := 0
	for _, result := range results {
		if result.Err == nil {
			successCount++
			continue
		}
		failed = append(failed, result.Account)
	}

	lines := []string{
		"✅ Парсинг завершён.",
		fmt.Sprintf("Всего аккаунтов: %d", len(accounts)),
		fmt.Sprintf("Успешно: %d", successCount),
		fmt.Sprintf("Неуспешно: %d", len(failed)),
	}

	buttons := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("Назад", command.CallbackRegularParsing),
			tgbotapi.NewInlineKeyboardButtonData("Назад в меню", command.CallbackMainMenu),
		},
	}

	if len(failed) > 0 {
		lines = append(lines, "", "❗️Не удалось спарсить следующие аккаунты:")
		for _, account := range failed {
			lines = append(lines, fmt.Sprintf("%s (%s)", account.URL, account.DisplayName()))
		}

		for i := range failed {
			failed[i].IsBlocked = true
			if _, err := s.Storage.MutateAccount(ctx, failed[i].ID, func(a *domain.Account) {
				a.IsBlocked = true
			}); err != nil {
				s.Logger.Error("Failed to mark account as blocked", "accountID", failed[i].ID, "error", err)
			}
		}

		if err := s.Storage.SetLastFailed(ctx, failed); err != nil {
			s.Logger.Error("Failed to persist failed batch", "error", err)
		}

		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("❌ Удалить невалид", command.CallbackDeleteInvalid),
		})
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(buttons...)
	s.Telegram.NotifyAdmins(strings.Join(lines, "\n"), &keyboard)

	s.Logger.Info("Scheduled parsing completed", "success", successCount, "failed", len(failed))
}
