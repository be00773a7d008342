package schedulerimpl

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/parser"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets"
)

// runMonitorPosts is one pass of deletion detection: for every covered
// account the fresh listing is compared against the post ids recorded
// in the account's worksheet. Ids already present in the deleted-posts
// log are excluded so the loops sharing that log never alert twice.
func (s *SchedulerImpl) runMonitorPosts(ctx context.Context, settings domain.MonitorPostsSettings) {
	accounts, err := s.Storage.Accounts(ctx)
	if err != nil {
		s.Logger.Error("Failed to load accounts", "error", err)
		return
	}

	scope := settings.Scope
	if scope == "" {
		scope = domain.ScopeBoth
	}

	covered := lo.Filter(accounts, func(a domain.Account, _ int) bool {
		if scope == domain.ScopeBoth && a.Mode != domain.ModeBoth {
			return false
		}
		return platformEnabled(a.Domain, settings.DTFEnabled, settings.VCEnabled, settings.TenchatEnabled)
	})

	s.Logger.Info("Starting post monitoring", "accounts", len(covered))
	if err := s.Storage.TouchMonitorPostsRun(ctx, s.now()); err != nil {
		s.Logger.Error("Failed to persist last run timestamp", "error", err)
	}

	exclude, err := s.Sheets.ReadReportedDeleted(ctx)
	if err != nil {
		s.Logger.Error("Failed to read deleted-posts log, continuing without exclusions", "error", err)
		exclude = map[int64]struct{}{}
	}

	var (
		allDeleted []domain.DeletedPost
		grouped    [][]domain.DeletedPost
		checked    int
		blocked    int
	)

	for _, account := range covered {
		if account.IsBlocked {
			blocked++
			continue
		}
		checked++

		s.Logger.Debug("Checking posts", "username", account.Username)

		adapter, err := s.Registry.ForDomain(account.Domain)
		if err != nil {
			s.Logger.Error("No adapter for account", "username", account.Username, "error", err)
			continue
		}

		posts, err := adapter.FetchPosts(ctx, platform.RefFromAccount(account), platform.FetchOpts{})
		if err != nil {
			s.Logger.Error("Failed to fetch posts", "username", account.Username, "error", err)
			continue
		}

		title := sheets.Title(platform.SheetPrefix(account.Domain), account.Username)
		recorded, err := s.Sheets.ReadPostIDs(ctx, title)
		if err != nil {
			s.Logger.Error("Failed to read recorded posts", "sheet", title, "error", err)
			continue
		}

		recordedIDs := make(map[int64]struct{}, len(recorded))
		for id := range recorded {
			recordedIDs[id] = struct{}{}
		}

		deletedIDs := parser.DetectDeleted(recordedIDs, parser.PostIDs(posts), exclude)
		if len(deletedIDs) == 0 {
			continue
		}

		deleted := make([]domain.DeletedPost, 0, len(deletedIDs))
		for _, id := range deletedIDs {
			s.Logger.Info("Deleted post detected", "username", account.Username, "postID", id)
			deleted = append(deleted, domain.DeletedPost{
				AccountURL: account.URL,
				Name:       account.DisplayName(),
				Username:   account.Username,
				PostID:     id,
				PostURL:    recorded[id],
			})
		}

		allDeleted = append(allDeleted, deleted...)
		grouped = append(grouped, deleted)
	}

	if len(allDeleted) > 0 {
		s.Logger.Warn("Deleted posts detected", "count", len(allDeleted))
		s.Telegram.NotifyAdmins(monitorPostsDigest(len(covered), grouped), nil)
	} else {
		s.Logger.Info("No deleted posts detected")
		s.Telegram.NotifyAdmins(strings.Join([]string{
			"✅ Мониторинг Статей",
			fmt.Sprintf("Проверенных аккаунтов: %d", checked),
			fmt.Sprintf("Заблоченных аккаунтов: %d", blocked),
			"✅ Удаленных URL: 0",
			"",
			"Все ОК!",
		}, "\n"), nil)
	}

	if len(allDeleted) > 0 {
		if err := s.Sheets.UpdateMonitorPosts(ctx, allDeleted); err != nil {
			s.Logger.Error("Failed to write deleted-posts log", "error", err)
		}
	}
}

func monitorPostsDigest(totalAccounts int, grouped [][]domain.DeletedPost) string {
	totalDeleted := 0
	for _, group := range grouped {
		totalDeleted += len(group)
	}

	lines := []string{
		"✅ Мониторинг Статей",
		fmt.Sprintf("Проверенных аккаунтов: %d", totalAccounts),
		fmt.Sprintf("❌ Удаленных URL: %d", totalDeleted),
	}

	for _, group := range grouped {
		lines = append(lines, "", fmt.Sprintf("%s - %d:", group[0].Username, len(group)))
		for _, post := range group {
			lines = append(lines, fmt.Sprintf("%d", post.PostID))
		}
		for _, post := range group {
			lines = append(lines, post.PostURL)
		}
	}

	return strings.Join(lines, "\n")
}
