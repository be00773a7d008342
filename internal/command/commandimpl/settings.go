package commandimpl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/formatter"
)

func (c *CommandImpl) sendRegularParsingMenu(ctx context.Context, chatID int64) {
	settings, err := c.Storage.RegularParsing(ctx)
	if err != nil {
		c.Logger.Error("Failed to load regular parsing settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось загрузить настройки.")
		return
	}

	lines := []string{
		"⚙️ Парсинг по расписанию",
		fmt.Sprintf("Статус: %s", onOff(settings.Enabled)),
	}
	if settings.Periodicity != nil {
		lines = append(lines, fmt.Sprintf("Периодичность: каждые %d дн. в %s",
			settings.Periodicity.Interval, settings.Periodicity.Time))
	} else {
		lines = append(lines, "Периодичность: не задана")
	}
	if settings.LastRun != nil {
		lines = append(lines, fmt.Sprintf("Последний запуск: %s",
			formatter.FormatDateTime(settings.LastRun.In(c.location))))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Парсинг", settings.Enabled), command.CallbackRegularToggle),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Изменить периодичность", command.CallbackRegularPeriod),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Запустить сейчас", command.CallbackRegularRunNow),
		),
		backRow(),
	)
	c.Telegram.SendMessageWithKeyboard(chatID, joinLines(lines), keyboard)
}

func (c *CommandImpl) toggleRegularParsing(ctx context.Context, chatID int64) {
	if _, err := c.Storage.ToggleRegularParsing(ctx); err != nil {
		c.Logger.Error("Failed to toggle regular parsing", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}
	c.sendRegularParsingMenu(ctx, chatID)
}

func (c *CommandImpl) askRegularPeriod(chatID int64) {
	c.session(chatID).state = stateAwaitRegularPeriod
	c.Telegram.SendMessage(chatID, "Введите периодичность в формате: N дней ЧЧ:ММ")
}

func (c *CommandImpl) handleRegularPeriodInput(ctx context.Context, chatID int64, sess *session, text string) {
	periodicity, err := parseRegularPeriodicity(text)
	if err != nil {
		c.Telegram.SendMessage(chatID, "⚠️ Неверный формат. Пример: 3 дней 09:30. Попробуйте ещё раз:")
		return
	}

	settings, err := c.Storage.RegularParsing(ctx)
	if err != nil {
		c.Logger.Error("Failed to load regular parsing settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	settings.Periodicity = &periodicity
	if err := c.Storage.SetRegularParsing(ctx, settings); err != nil {
		c.Logger.Error("Failed to save regular parsing settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	sess.state = stateIdle
	c.sendRegularParsingMenu(ctx, chatID)
}

// parseRegularPeriodicity accepts "N дней ЧЧ:ММ" (the word is free-form)
// or just "N ЧЧ:ММ".
func parseRegularPeriodicity(text string) (domain.Periodicity, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 || len(fields) > 3 {
		return domain.Periodicity{}, fmt.Errorf("expected 2 or 3 fields, got %d", len(fields))
	}

	interval, err := strconv.Atoi(fields[0])
	if err != nil || interval <= 0 {
		return domain.Periodicity{}, fmt.Errorf("invalid interval %q", fields[0])
	}

	timeOfDay, err := domain.ParseTimeOfDay(fields[len(fields)-1])
	if err != nil {
		return domain.Periodicity{}, err
	}

	return domain.Periodicity{Interval: interval, Time: timeOfDay}, nil
}

func (c *CommandImpl) runRegularNow(ctx context.Context, chatID int64) {
	c.Telegram.SendMessage(chatID, "▶️ Парсинг запущен. Отчёт придёт по завершении.")
	go c.Scheduler.RunRegularParsingNow(ctx)
}

func (c *CommandImpl) sendMonitorAccountsMenu(ctx context.Context, chatID int64) {
	settings, err := c.Storage.MonitorAccounts(ctx)
	if err != nil {
		c.Logger.Error("Failed to load monitor accounts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось загрузить настройки.")
		return
	}

	lines := []string{
		"⚙️ Мониторинг аккаунтов",
		fmt.Sprintf("Статус: %s", onOff(settings.Enabled)),
		fmt.Sprintf("Периодичность: %d мин.", settings.Periodicity),
		fmt.Sprintf("Смена URL: %s, блокировки: %s", onOff(settings.URLChangeEnabled), onOff(settings.BlockingEnabled)),
		fmt.Sprintf("Платформы: DTF %s, VC %s, Tenchat %s",
			onOff(settings.DTFEnabled), onOff(settings.VCEnabled), onOff(settings.TenchatEnabled)),
	}
	if settings.LastRun != nil {
		lines = append(lines, fmt.Sprintf("Последний запуск: %s",
			formatter.FormatDateTime(settings.LastRun.In(c.location))))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Мониторинг", settings.Enabled), command.CallbackMonitorAccTgl),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Смена URL", settings.URLChangeEnabled), dataWithArg(command.CallbackMonitorAccTgl, "url")),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Блокировки", settings.BlockingEnabled), dataWithArg(command.CallbackMonitorAccTgl, "block")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("DTF", settings.DTFEnabled), dataWithArg(command.CallbackMonitorAccTgl, "dtf")),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("VC", settings.VCEnabled), dataWithArg(command.CallbackMonitorAccTgl, "vc")),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Tenchat", settings.TenchatEnabled), dataWithArg(command.CallbackMonitorAccTgl, "tenchat")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Изменить периодичность", command.CallbackMonitorAccPer),
		),
		backRow(),
	)
	c.Telegram.SendMessageWithKeyboard(chatID, joinLines(lines), keyboard)
}

func (c *CommandImpl) toggleMonitorAccounts(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		if _, err := c.Storage.ToggleMonitorAccounts(ctx); err != nil {
			c.Logger.Error("Failed to toggle account monitoring", "error", err)
			c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
			return
		}
		c.sendMonitorAccountsMenu(ctx, chatID)
		return
	}

	settings, err := c.Storage.MonitorAccounts(ctx)
	if err != nil {
		c.Logger.Error("Failed to load monitor accounts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	switch arg {
	case "url":
		settings.URLChangeEnabled = !settings.URLChangeEnabled
	case "block":
		settings.BlockingEnabled = !settings.BlockingEnabled
	case "dtf":
		settings.DTFEnabled = !settings.DTFEnabled
	case "vc":
		settings.VCEnabled = !settings.VCEnabled
	case "tenchat":
		settings.TenchatEnabled = !settings.TenchatEnabled
	default:
		c.Logger.Warn("Unknown monitor accounts toggle", "arg", arg)
		return
	}

	if err := c.Storage.SetMonitorAccounts(ctx, settings); err != nil {
		c.Logger.Error("Failed to save monitor accounts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}
	c.sendMonitorAccountsMenu(ctx, chatID)
}

func (c *CommandImpl) askMonitorAccountsPeriod(chatID int64) {
	c.session(chatID).state = stateAwaitMonitorAccountsPeriod
	c.Telegram.SendMessage(chatID, "Введите периодичность в минутах:")
}

func (c *CommandImpl) handleMonitorAccountsPeriodInput(ctx context.Context, chatID int64, sess *session, text string) {
	minutes, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || minutes <= 0 {
		c.Telegram.SendMessage(chatID, "⚠️ Неверное число минут. Попробуйте ещё раз:")
		return
	}

	settings, err := c.Storage.MonitorAccounts(ctx)
	if err != nil {
		c.Logger.Error("Failed to load monitor accounts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	settings.Periodicity = minutes
	if err := c.Storage.SetMonitorAccounts(ctx, settings); err != nil {
		c.Logger.Error("Failed to save monitor accounts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	sess.state = stateIdle
	c.sendMonitorAccountsMenu(ctx, chatID)
}

func (c *CommandImpl) sendMonitorPostsMenu(ctx context.Context, chatID int64) {
	settings, err := c.Storage.MonitorPosts(ctx)
	if err != nil {
		c.Logger.Error("Failed to load monitor posts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось загрузить настройки.")
		return
	}

	times := lo.Map(settings.Periodicity, func(t domain.TimeOfDay, _ int) string { return t.String() })
	scope := "только режим «оба»"
	if settings.Scope == domain.ScopeAll {
		scope = "все аккаунты"
	}

	lines := []string{
		"⚙️ Мониторинг постов",
		fmt.Sprintf("Статус: %s", onOff(settings.Enabled)),
		fmt.Sprintf("Время запуска: %s", strings.Join(times, ", ")),
		fmt.Sprintf("Охват: %s", scope),
		fmt.Sprintf("Платформы: DTF %s, VC %s, Tenchat %s",
			onOff(settings.DTFEnabled), onOff(settings.VCEnabled), onOff(settings.TenchatEnabled)),
	}
	if settings.LastRun != nil {
		lines = append(lines, fmt.Sprintf("Последний запуск: %s",
			formatter.FormatDateTime(settings.LastRun.In(c.location))))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Мониторинг", settings.Enabled), command.CallbackMonitorPostTgl),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Переключить охват", dataWithArg(command.CallbackMonitorPostTgl, "scope")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("DTF", settings.DTFEnabled), dataWithArg(command.CallbackMonitorPostTgl, "dtf")),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("VC", settings.VCEnabled), dataWithArg(command.CallbackMonitorPostTgl, "vc")),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel("Tenchat", settings.TenchatEnabled), dataWithArg(command.CallbackMonitorPostTgl, "tenchat")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Изменить время запуска", command.CallbackMonitorPostPer),
		),
		backRow(),
	)
	c.Telegram.SendMessageWithKeyboard(chatID, joinLines(lines), keyboard)
}

func (c *CommandImpl) toggleMonitorPosts(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		if _, err := c.Storage.ToggleMonitorPosts(ctx); err != nil {
			c.Logger.Error("Failed to toggle post monitoring", "error", err)
			c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
			return
		}
		c.sendMonitorPostsMenu(ctx, chatID)
		return
	}

	settings, err := c.Storage.MonitorPosts(ctx)
	if err != nil {
		c.Logger.Error("Failed to load monitor posts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	switch arg {
	case "scope":
		if settings.Scope == domain.ScopeAll {
			settings.Scope = domain.ScopeBoth
		} else {
			settings.Scope = domain.ScopeAll
		}
	case "dtf":
		settings.DTFEnabled = !settings.DTFEnabled
	case "vc":
		settings.VCEnabled = !settings.VCEnabled
	case "tenchat":
		settings.TenchatEnabled = !settings.TenchatEnabled
	default:
		c.Logger.Warn("Unknown monitor posts toggle", "arg", arg)
		return
	}

	if err := c.Storage.SetMonitorPosts(ctx, settings); err != nil {
		c.Logger.Error("Failed to save monitor posts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}
	c.sendMonitorPostsMenu(ctx, chatID)
}

func (c *CommandImpl) askMonitorPostsPeriod(chatID int64) {
	c.session(chatID).state = stateAwaitMonitorPostsPeriod
	c.Telegram.SendMessage(chatID, "Введите время запуска через запятую, например: 09:00, 15:30, 21:00")
}

func (c *CommandImpl) handleMonitorPostsPeriodInput(ctx context.Context, chatID int64, sess *session, text string) {
	times, err := parseTimesList(text)
	if err != nil {
		c.Telegram.SendMessage(chatID, "⚠️ Неверный формат. Пример: 09:00, 15:30, 21:00. Попробуйте ещё раз:")
		return
	}

	settings, err := c.Storage.MonitorPosts(ctx)
	if err != nil {
		c.Logger.Error("Failed to load monitor posts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	settings.Periodicity = times
	if err := c.Storage.SetMonitorPosts(ctx, settings); err != nil {
		c.Logger.Error("Failed to save monitor posts settings", "error", err)
		c.Telegram.SendMessage(chatID, "⚠️ Не удалось изменить настройки.")
		return
	}

	sess.state = stateIdle
	c.sendMonitorPostsMenu(ctx, chatID)
}

func parseTimesList(text string) ([]domain.TimeOfDay, error) {
	parts := strings.Split(text, ",")
	times := make([]domain.TimeOfDay, 0, len(parts))
	for _, part := range parts {
		t, err := domain.ParseTimeOfDay(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("empty times list")
	}
	return times, nil
}
