package schedulerimpl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/output"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/parser/parserimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage/jsonimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
)

type fakeAdapter struct {
	identity   platform.Identity
	resolveErr error
	posts      []domain.Post
	fetchErr   error
}

func (f *fakeAdapter) ResolveIdentity(_ context.Context, _ platform.Ref) (platform.Identity, error) {
	return f.identity, f.resolveErr
}

func (f *fakeAdapter) FetchPosts(_ context.Context, _ platform.Ref, _ platform.FetchOpts) ([]domain.Post, error) {
	return f.posts, f.fetchErr
}

type fakeSheets struct {
	mu           sync.Mutex
	stats        []domain.AccountStats
	userPosts    map[string][]domain.Post
	changes      []domain.AccountChange
	deletedRows  []domain.DeletedPost
	postIDs      map[string]map[int64]string
	reportedDel  map[int64]struct{}
	readIDsErr   error
	reportedErr  error
	monitorCalls int
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		userPosts: map[string][]domain.Post{},
		postIDs:   map[string]map[int64]string{},
	}
}

func (f *fakeSheets) UpdateUserPosts(_ context.Context, title string, posts []domain.Post, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userPosts[title] = posts
	return nil
}

func (f *fakeSheets) UpdateRegularParsing(_ context.Context, stats []domain.AccountStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, stats...)
	return nil
}

func (f *fakeSheets) UpdateMonitorAccounts(_ context.Context, changes []domain.AccountChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, changes...)
	return nil
}

func (f *fakeSheets) UpdateMonitorPosts(_ context.Context, rows []domain.DeletedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitorCalls++
	f.deletedRows = append(f.deletedRows, rows...)
	return nil
}

func (f *fakeSheets) ReadPostIDs(_ context.Context, title string) (map[int64]string, error) {
	return f.postIDs[title], f.readIDsErr
}

func (f *fakeSheets) ReadReportedDeleted(_ context.Context) (map[int64]struct{}, error) {
	return f.reportedDel, f.reportedErr
}

type notification struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

type fakeTelegram struct {
	mu            sync.Mutex
	notifications []notification
}

func (f *fakeTelegram) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return nil }
func (f *fakeTelegram) StopReceivingUpdates()                                          {}

func (f *fakeTelegram) SendMessage(_ int64, _ string) (int, error) { return 1, nil }

func (f *fakeTelegram) SendMessageWithKeyboard(_ int64, _ string, _ tgbotapi.InlineKeyboardMarkup) (int, error) {
	return 1, nil
}

func (f *fakeTelegram) EditMessageText(_ int64, _ int, _ string) error { return nil }

func (f *fakeTelegram) SendDocument(_ int64, _ string, _ []byte, _ string) error { return nil }

func (f *fakeTelegram) AnswerCallback(_ string) {}

func (f *fakeTelegram) NotifyAdmins(text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, notification{text: text, keyboard: keyboard})
}

type fixture struct {
	scheduler *SchedulerImpl
	store     *jsonimpl.JSONFile
	sheets    *fakeSheets
	telegram  *fakeTelegram
	outDir    string
}

func newFixture(t *testing.T, adapter platform.Adapter) *fixture {
	t.Helper()

	log := logger.New(logger.Opts{Env: "production"})
	store := jsonimpl.NewWithPath(filepath.Join(t.TempDir(), "storage.json"), log)
	sheetsClient := newFakeSheets()
	tg := &fakeTelegram{}
	registry := platform.NewRegistry(adapter, adapter)
	outDir := t.TempDir()

	cfg := &config.Config{}
	cfg.App.Timezone = "Europe/Moscow"
	cfg.Parser.Workers = 1

	parserClient := parserimpl.New(parserimpl.Opts{
		Registry: registry,
		Storage:  store,
		Sheets:   sheetsClient,
		Output:   &output.FS{Dir: outDir, HTTPClient: http.DefaultClient, Logger: log},
		Logger:   log,
		Config:   cfg,
	})

	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	return &fixture{
		scheduler: &SchedulerImpl{
			Storage:  store,
			Parser:   parserClient,
			Registry: registry,
			Sheets:   sheetsClient,
			Telegram: tg,
			Logger:   log,
			location: moscow,
		},
		store:    store,
		sheets:   sheetsClient,
		telegram: tg,
		outDir:   outDir,
	}
}

func schedulerTestPosts(ids ...int64) []domain.Post {
	posts := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, domain.Post{
			ID:          id,
			Views:       int(id),
			Author:      "Автор",
			PublishedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
			Payload:     json.RawMessage(`{}`),
		})
	}
	return posts
}

func TestRunRegularParsing_EndToEnd(t *testing.T) {
	adapter := &fakeAdapter{
		identity: platform.Identity{Name: "Автор", UserID: 77},
		posts:    schedulerTestPosts(105, 104, 103),
	}
	f := newFixture(t, adapter)
	ctx := context.Background()

	account, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/author", Mode: domain.ModeBoth,
		Domain: "dtf.ru", Username: "author", UserID: 77, LastPostID: 100,
	})
	require.NoError(t, err)

	f.scheduler.runRegularParsing(ctx)

	// Checkpoint advances past the new posts.
	stored, err := f.store.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(105), stored.LastPostID)

	// Only posts above the old checkpoint land in the file tree.
	for _, id := range []string{"105", "104", "103"} {
		_, err := os.Stat(filepath.Join(f.outDir, "dtf-author", id, "data.json"))
		assert.NoError(t, err, "post %s", id)
	}
	_, err = os.Stat(filepath.Join(f.outDir, "dtf-author", "100"))
	assert.True(t, os.IsNotExist(err))

	// Stats row reaches the spreadsheet.
	require.Len(t, f.sheets.stats, 1)
	assert.Equal(t, "https://dtf.ru/author", f.sheets.stats[0].URL)
	assert.Equal(t, 3, f.sheets.stats[0].TotalPosts)
	assert.Contains(t, f.sheets.userPosts, "dtf-author")

	// Digest reports the successful pass and the run is stamped.
	require.Len(t, f.telegram.notifications, 1)
	assert.Contains(t, f.telegram.notifications[0].text, "Успешно: 1")
	assert.Contains(t, f.telegram.notifications[0].text, "Неуспешно: 0")

	settings, err := f.store.RegularParsing(ctx)
	require.NoError(t, err)
	assert.NotNil(t, settings.LastRun)
}

func TestRunRegularParsing_FailedBatchAndBlockedPromotion(t *testing.T) {
	adapter := &fakeAdapter{resolveErr: errors.New("boom")}
	f := newFixture(t, adapter)
	ctx := context.Background()

	account, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://vc.ru/flaky", Mode: domain.ModeBoth, Domain: "vc.ru", Username: "flaky",
	})
	require.NoError(t, err)

	f.scheduler.runRegularParsing(ctx)

	stored, err := f.store.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBlocked)

	failed, err := f.store.LastFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, account.ID, failed[0].ID)

	require.Len(t, f.telegram.notifications, 1)
	note := f.telegram.notifications[0]
	assert.Contains(t, note.text, "Не удалось спарсить следующие аккаунты:")
	assert.Contains(t, note.text, "https://vc.ru/flaky")
	require.NotNil(t, note.keyboard)
	// Failed passes get the extra delete-invalid row.
	assert.Len(t, note.keyboard.InlineKeyboard, 2)
}

func TestRunRegularParsing_SkipsBlockedAccounts(t *testing.T) {
	adapter := &fakeAdapter{posts: schedulerTestPosts(10)}
	f := newFixture(t, adapter)
	ctx := context.Background()

	_, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/banned", Mode: domain.ModeBoth, Domain: "dtf.ru", Username: "banned", IsBlocked: true,
	})
	require.NoError(t, err)

	f.scheduler.runRegularParsing(ctx)

	require.Len(t, f.telegram.notifications, 1)
	assert.Contains(t, f.telegram.notifications[0].text, "Успешно: 0")
	assert.Contains(t, f.telegram.notifications[0].text, "Неуспешно: 0")
}

func TestRunMonitorPosts_DetectsDeleted(t *testing.T) {
	adapter := &fakeAdapter{posts: schedulerTestPosts(105, 104, 103)}
	f := newFixture(t, adapter)
	ctx := context.Background()

	_, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/author", Mode: domain.ModeBoth,
		Domain: "dtf.ru", Username: "author", UserID: 77, Name: "Автор",
	})
	require.NoError(t, err)

	f.sheets.postIDs["dtf-author"] = map[int64]string{
		105: "https://dtf.ru/author/105",
		104: "https://dtf.ru/author/104",
		103: "https://dtf.ru/author/103",
		98:  "https://dtf.ru/author/98",
	}

	f.scheduler.runMonitorPosts(ctx, domain.MonitorPostsSettings{
		Enabled: true, DTFEnabled: true, Scope: domain.ScopeBoth,
	})

	require.Len(t, f.sheets.deletedRows, 1)
	row := f.sheets.deletedRows[0]
	assert.Equal(t, int64(98), row.PostID)
	assert.Equal(t, "https://dtf.ru/author/98", row.PostURL)
	assert.Equal(t, "author", row.Username)

	require.Len(t, f.telegram.notifications, 1)
	text := f.telegram.notifications[0].text
	assert.Contains(t, text, "❌ Удаленных URL: 1")
	// Groups are headed by the handle, not the display name.
	assert.Contains(t, text, "author - 1:")
	assert.NotContains(t, text, "Автор - 1:")
}

func TestRunMonitorPosts_ExcludesAlreadyReported(t *testing.T) {
	adapter := &fakeAdapter{posts: schedulerTestPosts(105)}
	f := newFixture(t, adapter)
	ctx := context.Background()

	_, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/author", Mode: domain.ModeBoth,
		Domain: "dtf.ru", Username: "author", UserID: 77,
	})
	require.NoError(t, err)

	f.sheets.postIDs["dtf-author"] = map[int64]string{105: "u105", 98: "u98"}
	f.sheets.reportedDel = map[int64]struct{}{98: {}}

	f.scheduler.runMonitorPosts(ctx, domain.MonitorPostsSettings{
		Enabled: true, DTFEnabled: true, Scope: domain.ScopeBoth,
	})

	assert.Zero(t, f.sheets.monitorCalls)
	require.Len(t, f.telegram.notifications, 1)
	assert.Contains(t, f.telegram.notifications[0].text, "Все ОК!")
}

func TestRunMonitorPosts_ScopeBothSkipsOtherModes(t *testing.T) {
	adapter := &fakeAdapter{posts: schedulerTestPosts(105)}
	f := newFixture(t, adapter)
	ctx := context.Background()

	_, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/serveronly", Mode: domain.ModeServer,
		Domain: "dtf.ru", Username: "serveronly", UserID: 5,
	})
	require.NoError(t, err)

	f.sheets.postIDs["dtf-serveronly"] = map[int64]string{105: "u105", 98: "u98"}

	f.scheduler.runMonitorPosts(ctx, domain.MonitorPostsSettings{
		Enabled: true, DTFEnabled: true, Scope: domain.ScopeBoth,
	})

	assert.Zero(t, f.sheets.monitorCalls)
}

func TestRunMonitorAccounts_BlockingChange(t *testing.T) {
	adapter := &fakeAdapter{
		identity: platform.Identity{URL: "https://dtf.ru/author", Name: "Автор", IsBlocked: true},
	}
	f := newFixture(t, adapter)
	ctx := context.Background()

	account, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/author", Mode: domain.ModeBoth,
		Domain: "dtf.ru", Username: "author", UserID: 77,
		LastURL: "https://dtf.ru/author", LastPostID: 100,
	})
	require.NoError(t, err)

	f.scheduler.runMonitorAccounts(ctx, domain.MonitorAccountsSettings{
		Enabled: true, BlockingEnabled: true, DTFEnabled: true,
	})

	stored, err := f.store.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBlocked)
	// The monitoring write touches only its own fields.
	assert.Equal(t, int64(100), stored.LastPostID)

	require.Len(t, f.sheets.changes, 1)
	assert.Equal(t, "заблокирован", f.sheets.changes[0].Status)

	require.Len(t, f.telegram.notifications, 1)
	assert.Contains(t, f.telegram.notifications[0].text, "❌ Заблочены: 1")
}

func TestRunMonitorAccounts_FirstObservationAndURLChange(t *testing.T) {
	adapter := &fakeAdapter{
		identity: platform.Identity{URL: "https://dtf.ru/newhandle", Name: "Автор"},
	}
	f := newFixture(t, adapter)
	ctx := context.Background()

	fresh, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/fresh", Mode: domain.ModeBoth, Domain: "dtf.ru", Username: "fresh", UserID: 1,
	})
	require.NoError(t, err)
	moved, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/moved", Mode: domain.ModeBoth, Domain: "dtf.ru", Username: "moved", UserID: 2,
		LastURL: "https://dtf.ru/oldhandle",
	})
	require.NoError(t, err)

	f.scheduler.runMonitorAccounts(ctx, domain.MonitorAccountsSettings{
		Enabled: true, URLChangeEnabled: true, DTFEnabled: true,
	})

	require.Len(t, f.sheets.changes, 2)
	byURL := map[string]domain.AccountChange{}
	for _, change := range f.sheets.changes {
		byURL[change.URL] = change
	}
	assert.Equal(t, "перв.монит", byURL["https://dtf.ru/fresh"].Status)
	assert.Equal(t, "смена URL", byURL["https://dtf.ru/moved"].Status)

	storedFresh, err := f.store.Account(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://dtf.ru/newhandle", storedFresh.LastURL)

	storedMoved, err := f.store.Account(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://dtf.ru/newhandle", storedMoved.LastURL)

	// Only real moves reach the digest; first observations are logged silently.
	require.Len(t, f.telegram.notifications, 1)
	text := f.telegram.notifications[0].text
	assert.Contains(t, text, "🔁 Смена URL: 1")
	assert.Contains(t, text, "https://dtf.ru/oldhandle > https://dtf.ru/newhandle")
}

func TestRunMonitorAccounts_FetchErrorAssumesBlocked(t *testing.T) {
	adapter := &fakeAdapter{resolveErr: errors.New("timeout")}
	f := newFixture(t, adapter)
	ctx := context.Background()

	account, err := f.store.AddAccount(ctx, domain.Account{
		URL: "https://dtf.ru/gone", Mode: domain.ModeBoth, Domain: "dtf.ru", Username: "gone", UserID: 9,
		Name: "Автор", LastURL: "https://dtf.ru/gone",
	})
	require.NoError(t, err)

	f.scheduler.runMonitorAccounts(ctx, domain.MonitorAccountsSettings{
		Enabled: true, BlockingEnabled: true, DTFEnabled: true,
	})

	stored, err := f.store.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBlocked)
	// Last known name and URL are retained.
	assert.Equal(t, "Автор", stored.Name)
	assert.Equal(t, "https://dtf.ru/gone", stored.LastURL)
}
