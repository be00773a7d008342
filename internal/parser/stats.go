package parser

import (
	"fmt"
	"sort"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

// ExtractStats aggregates the fetched window into the statistics row
// for the regular-parsing sheet. The "today" bucket compares each
// post's publish date against now's date, both in now's location.
// Totals cover only the fetched window, not the account's lifetime; the
// spreadsheet history depends on these numbers, so the undercount is
// intentional.
func ExtractStats(account domain.Account, posts []domain.Post, now time.Time) domain.AccountStats {
	stats := domain.AccountStats{
		URL:  fmt.Sprintf("https://%s/%s", account.Domain, account.Username),
		Name: account.DisplayName(),
	}
	if len(posts) > 0 && posts[0].Author != "" {
		stats.Name = posts[0].Author
	}

	today := now.Format("2006-01-02")
	for _, post := range posts {
		stats.TotalPosts++
		stats.TotalViews += post.Views

		if post.PublishedAt.In(now.Location()).Format("2006-01-02") == today {
			stats.TodayPosts++
			stats.TodayViews += post.Views
		}
	}
	return stats
}

// DetectDeleted returns ids that were previously recorded, are absent
// from the fresh fetch and have not been reported before. The result
// is sorted ascending.
func DetectDeleted(existing, fetched, exclude map[int64]struct{}) []int64 {
	var deleted []int64
	for id := range existing {
		if _, ok := fetched[id]; ok {
			continue
		}
		if _, ok := exclude[id]; ok {
			continue
		}
		deleted = append(deleted, id)
	}

	sort.Slice(deleted, func(i, j int) bool { return deleted[i] < deleted[j] })
	return deleted
}

// NewSince slices a newest-first post list down to posts strictly newer
// than the checkpoint.
func NewSince(posts []domain.Post, sinceID int64) []domain.Post {
	if sinceID == 0 {
		return posts
	}
	for i, post := range posts {
		if post.ID <= sinceID {
			return posts[:i]
		}
	}
	return posts
}

// PostIDs collects the id set of a fetched window.
func PostIDs(posts []domain.Post) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(posts))
	for _, post := range posts {
		ids[post.ID] = struct{}{}
	}
	return ids
}
