package jsonimpl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
)

func newTestStore(t *testing.T) *JSONFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.json")
	return NewWithPath(path, logger.New(logger.Opts{Env: "production"}))
}

func TestAddAccount_AssignsSequentialIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.AddAccount(ctx, domain.Account{URL: "https://dtf.ru/one", Mode: domain.ModeBoth})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := store.AddAccount(ctx, domain.Account{URL: "https://dtf.ru/two", Mode: domain.ModeBoth})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestAddAccount_NextIDIsMaxPlusOne(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.save(&Document{Accounts: []domain.Account{
		{ID: 2, URL: "https://dtf.ru/a"},
		{ID: 5, URL: "https://dtf.ru/b"},
		{ID: 7, URL: "https://dtf.ru/c"},
	}}))

	added, err := store.AddAccount(ctx, domain.Account{URL: "https://dtf.ru/new", Mode: domain.ModeSheet})
	require.NoError(t, err)
	assert.Equal(t, int64(8), added.ID)
}

func TestAddAccount_RejectsDuplicateURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddAccount(ctx, domain.Account{URL: "https://vc.ru/author", Mode: domain.ModeBoth})
	require.NoError(t, err)

	_, err = store.AddAccount(ctx, domain.Account{URL: "https://vc.ru/author", Mode: domain.ModeServer})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestAccount_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Account(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoad_MissingFileYieldsEmptyDocument(t *testing.T) {
	store := newTestStore(t)

	accounts, err := store.Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestLoad_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewWithPath(path, logger.New(logger.Opts{Env: "production"}))
	_, err := store.Accounts(context.Background())
	assert.ErrorContains(t, err, "corrupted")
}

func TestMutateAccount_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	log := logger.New(logger.Opts{Env: "production"})
	store := NewWithPath(path, log)
	ctx := context.Background()

	added, err := store.AddAccount(ctx, domain.Account{URL: "https://dtf.ru/author", Mode: domain.ModeBoth})
	require.NoError(t, err)

	updated, err := store.MutateAccount(ctx, added.ID, func(a *domain.Account) {
		a.LastPostID = 105
		a.IsBlocked = true
	})
	require.NoError(t, err)
	assert.Equal(t, int64(105), updated.LastPostID)

	reopened := NewWithPath(path, log)
	got, err := reopened.Account(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(105), got.LastPostID)
	assert.True(t, got.IsBlocked)
}

func TestMutateAccount_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.MutateAccount(context.Background(), 404, func(a *domain.Account) { a.IsBlocked = true })
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMutateAccount_StaleCopyDoesNotRevertCheckpoint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddAccount(ctx, domain.Account{URL: "https://dtf.ru/author", Mode: domain.ModeBoth, LastPostID: 100})
	require.NoError(t, err)

	// The monitoring loop holds this copy while the parsing loop
	// advances the checkpoint underneath it.
	stale := added

	_, err = store.MutateAccount(ctx, added.ID, func(a *domain.Account) { a.LastPostID = 105 })
	require.NoError(t, err)

	_, err = store.MutateAccount(ctx, stale.ID, func(a *domain.Account) { a.IsBlocked = true })
	require.NoError(t, err)

	got, err := store.Account(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(105), got.LastPostID)
	assert.True(t, got.IsBlocked)
}

func TestDeleteLastFailed_RemovesBatchFromAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	kept, err := store.AddAccount(ctx, domain.Account{URL: "https://dtf.ru/kept", Mode: domain.ModeBoth})
	require.NoError(t, err)
	bad1, err := store.AddAccount(ctx, domain.Account{URL: "https://dtf.ru/bad1", Mode: domain.ModeBoth})
	require.NoError(t, err)
	bad2, err := store.AddAccount(ctx, domain.Account{URL: "https://vc.ru/bad2", Mode: domain.ModeSheet})
	require.NoError(t, err)

	require.NoError(t, store.SetLastFailed(ctx, []domain.Account{bad1, bad2}))

	removed, err := store.DeleteLastFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	accounts, err := store.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, kept.ID, accounts[0].ID)

	failed, err := store.LastFailed(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestToggleAndTouchSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enabled, err := store.ToggleRegularParsing(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = store.ToggleRegularParsing(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.TouchMonitorAccountsRun(ctx, at))

	settings, err := store.MonitorAccounts(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings.LastRun)
	assert.True(t, settings.LastRun.Equal(at))
}

func TestSetMonitorPosts_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := domain.MonitorPostsSettings{
		Enabled:     true,
		Periodicity: []domain.TimeOfDay{domain.NewTimeOfDay(9, 0), domain.NewTimeOfDay(21, 30)},
		Scope:       domain.ScopeAll,
		DTFEnabled:  true,
	}
	require.NoError(t, store.SetMonitorPosts(ctx, want))

	got, err := store.MonitorPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
