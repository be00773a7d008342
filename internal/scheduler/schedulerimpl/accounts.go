package schedulerimpl

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
)

// runMonitorAccounts is one pass of account-metadata monitoring: it
// re-resolves every tracked profile and reports handle/URL moves and
// blocking changes. An identity fetch failure is treated as the account
// having become blocked, with its last known name and URL retained.
func (s *SchedulerImpl) runMonitorAccounts(ctx context.Context, settings domain.MonitorAccountsSettings) {
	accounts, err := s.Storage.Accounts(ctx)
	if err != nil {
		s.Logger.Error("Failed to load accounts", "error", err)
		return
	}

	s.Logger.Info("Starting account monitoring", "accounts", len(accounts))
	if err := s.Storage.TouchMonitorAccountsRun(ctx, s.now()); err != nil {
		s.Logger.Error("Failed to persist last run timestamp", "error", err)
	}

	var (
		changed     []domain.AccountChange
		blockedList []string
		urlChanges  []domain.URLChange
	)

	for _, account := range accounts {
		if !platformEnabled(account.Domain, settings.DTFEnabled, settings.VCEnabled, settings.TenchatEnabled) {
			continue
		}

		s.Logger.Debug("Checking account", "username", account.Username, "userID", account.UserID)

		identity := s.resolveOrAssumeBlocked(ctx, account)

		urlChanged := settings.URLChangeEnabled && identity.URL != account.LastURL
		blockedChanged := settings.BlockingEnabled && identity.IsBlocked != account.IsBlocked

		// persist writes only the monitored fields; the parsing loop
		// owns LastPostID and runs concurrently with this pass.
		var (
			status  string
			persist func(a *domain.Account)
		)
		switch {
		case urlChanged:
			if account.LastURL == "" {
				status = "перв.монит"
			} else {
				status = "смена URL"
				urlChanges = append(urlChanges, domain.URLChange{
					AccountURL: account.URL,
					OldURL:     account.LastURL,
					NewURL:     identity.URL,
				})
			}
			s.Logger.Info("URL change detected", "username", account.Username, "old", account.LastURL, "new", identity.URL)

			account.Name = identity.Name
			account.LastURL = identity.URL
			persist = func(a *domain.Account) {
				a.Name = identity.Name
				a.LastURL = identity.URL
			}

		case blockedChanged:
			if identity.IsBlocked {
				status = "заблокирован"
				blockedList = append(blockedList, account.Username)
			} else {
				status = "разблокирован"
			}
			s.Logger.Warn("Blocking status changed", "username", account.Username, "status", status)

			account.Name = identity.Name
			account.IsBlocked = identity.IsBlocked
			persist = func(a *domain.Account) {
				a.Name = identity.Name
				a.IsBlocked = identity.IsBlocked
			}

		default:
			continue
		}

		if _, err := s.Storage.MutateAccount(ctx, account.ID, persist); err != nil {
			s.Logger.Error("Failed to persist account change", "accountID", account.ID, "error", err)
		}

		changed = append(changed, domain.AccountChange{
			URL:        account.URL,
			Name:       account.DisplayName(),
			Status:     status,
			CurrentURL: account.LastURL,
		})
	}

	if len(urlChanges) > 0 || len(blockedList) > 0 {
		s.Telegram.NotifyAdmins(monitorAccountsDigest(len(accounts), len(changed), blockedList, urlChanges), nil)
	}

	if len(changed) > 0 {
		if err := s.Sheets.UpdateMonitorAccounts(ctx, changed); err != nil {
			s.Logger.Error("Failed to write account-change log", "error", err)
		}
	}
}

func (s *SchedulerImpl) resolveOrAssumeBlocked(ctx context.Context, account domain.Account) platform.Identity {
	adapter, err := s.Registry.ForDomain(account.Domain)
	if err == nil {
		var identity platform.Identity
		identity, err = adapter.ResolveIdentity(ctx, platform.RefFromAccount(account))
		if err == nil {
			return identity
		}
	}

	s.Logger.Error("Failed to resolve identity, assuming blocked", "username", account.Username, "error", err)
	return platform.Identity{
		URL:       account.LastURL,
		Name:      account.Name,
		IsBlocked: true,
	}
}

func monitorAccountsDigest(total, changedCount int, blockedList []string, urlChanges []domain.URLChange) string {
	blockedHeader := fmt.Sprintf("✅ Заблочены: %d", len(blockedList))
	if len(blockedList) > 0 {
		blockedHeader = fmt.Sprintf("❌ Заблочены: %d", len(blockedList))
	}
	urlHeader := fmt.Sprintf("✅ Смена URL: %d", len(urlChanges))
	if len(urlChanges) > 0 {
		urlHeader = fmt.Sprintf("🔁 Смена URL: %d", len(urlChanges))
	}

	lines := []string{
		"✅ Мониторинг Аккаунтов",
		fmt.Sprintf("Всего: %d", total),
		fmt.Sprintf("Без изменений: %d", total-changedCount),
		"",
		blockedHeader,
		urlHeader,
	}

	if len(blockedList) > 0 {
		lines = append(lines, "", "Заблочены:")
		lines = append(lines, blockedList...)
	}

	if len(urlChanges) > 0 {
		lines = append(lines, "", "Смена URL:")
		for _, change := range urlChanges {
			lines = append(lines, fmt.Sprintf("%s : %s > %s", change.AccountURL, change.OldURL, change.NewURL))
		}
	}

	return strings.Join(lines, "\n")
}
