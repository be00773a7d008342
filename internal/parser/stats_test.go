package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

func TestExtractStats_TodayBucket(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	now := time.Date(2025, 5, 10, 15, 0, 0, 0, moscow)
	account := domain.Account{Domain: "dtf.ru", Username: "author", Name: "Старое имя"}

	posts := []domain.Post{
		{ID: 3, Views: 100, PublishedAt: time.Date(2025, 5, 10, 9, 0, 0, 0, moscow), Author: "Автор"},
		{ID: 2, Views: 50, PublishedAt: time.Date(2025, 5, 9, 23, 50, 0, 0, moscow), Author: "Автор"},
		{ID: 1, Views: 10, PublishedAt: time.Date(2025, 4, 1, 12, 0, 0, 0, moscow), Author: "Автор"},
	}

	stats := ExtractStats(account, posts, now)

	assert.Equal(t, "https://dtf.ru/author", stats.URL)
	assert.Equal(t, "Автор", stats.Name, "author from the fetched posts wins over the stored name")
	assert.Equal(t, 1, stats.TodayPosts)
	assert.Equal(t, 100, stats.TodayViews)
	assert.Equal(t, 3, stats.TotalPosts)
	assert.Equal(t, 160, stats.TotalViews)
}

func TestExtractStats_TodayRespectsLocation(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	// 22:30 UTC on May 9 is already May 10 in Moscow.
	now := time.Date(2025, 5, 10, 1, 0, 0, 0, moscow)
	posts := []domain.Post{
		{ID: 1, Views: 5, PublishedAt: time.Date(2025, 5, 9, 22, 30, 0, 0, time.UTC)},
	}

	stats := ExtractStats(domain.Account{Domain: "vc.ru", Username: "a"}, posts, now)
	assert.Equal(t, 1, stats.TodayPosts)
}

func TestExtractStats_EmptyWindow(t *testing.T) {
	stats := ExtractStats(domain.Account{Domain: "dtf.ru", Username: "quiet", Name: "Имя"}, nil, time.Now())
	assert.Equal(t, "Имя", stats.Name)
	assert.Zero(t, stats.TotalPosts)
}

func TestDetectDeleted(t *testing.T) {
	existing := map[int64]struct{}{98: {}, 99: {}, 100: {}, 101: {}}
	fetched := map[int64]struct{}{99: {}, 100: {}, 101: {}}

	deleted := DetectDeleted(existing, fetched, nil)
	assert.Equal(t, []int64{98}, deleted)
}

func TestDetectDeleted_ExcludesAlreadyReported(t *testing.T) {
	existing := map[int64]struct{}{90: {}, 95: {}, 100: {}}
	fetched := map[int64]struct{}{100: {}}
	exclude := map[int64]struct{}{95: {}}

	deleted := DetectDeleted(existing, fetched, exclude)
	assert.Equal(t, []int64{90}, deleted)
}

func TestDetectDeleted_SortedAscending(t *testing.T) {
	existing := map[int64]struct{}{7: {}, 3: {}, 9: {}, 1: {}}
	fetched := map[int64]struct{}{}

	deleted := DetectDeleted(existing, fetched, nil)
	assert.Equal(t, []int64{1, 3, 7, 9}, deleted)
}

func TestNewSince(t *testing.T) {
	posts := []domain.Post{{ID: 105}, {ID: 104}, {ID: 100}, {ID: 99}}

	newer := NewSince(posts, 100)
	require.Len(t, newer, 2)
	assert.Equal(t, int64(105), newer[0].ID)

	assert.Len(t, NewSince(posts, 0), 4)
	assert.Empty(t, NewSince(posts, 105))
}
