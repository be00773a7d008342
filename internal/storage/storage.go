package storage

import (
	"context"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/errors"
)

var (
	ErrNotFound      = errors.Wrap(errors.ErrNotFound, "account")
	ErrAlreadyExists = errors.Wrap(errors.ErrAlreadyExists, "account with this url")
)

//go:generate go run go.uber.org/mock/mockgen -source=storage.go -destination=mocks/mock.go
type Repository interface {
	// Accounts returns every tracked account.
	Accounts(ctx context.Context) ([]domain.Account, error)

	// Account returns one account by id.
	Account(ctx context.Context, id int64) (domain.Account, error)

	// AddAccount assigns the next free id and persists the account.
	// The canonical URL must be unique across all accounts.
	AddAccount(ctx context.Context, account domain.Account) (domain.Account, error)

	// MutateAccount applies fn to the stored account with the given id
	// under the store's write lock and returns the updated account.
	// Callers set only the fields they own, so loops running
	// concurrently never revert each other's writes through stale
	// copies.
	MutateAccount(ctx context.Context, id int64, fn func(account *domain.Account)) (domain.Account, error)

	// DeleteAccount removes one account by id.
	DeleteAccount(ctx context.Context, id int64) error

	// LastFailed returns the batch of accounts that failed the most
	// recent bulk run.
	LastFailed(ctx context.Context) ([]domain.Account, error)

	// SetLastFailed overwrites the failed batch.
	SetLastFailed(ctx context.Context, accounts []domain.Account) error

	// DeleteLastFailed removes every account in the failed batch from
	// the tracked set and clears the batch, returning how many
	// accounts were removed.
	DeleteLastFailed(ctx context.Context) (int, error)

	RegularParsing(ctx context.Context) (domain.RegularParsingSettings, error)
	SetRegularParsing(ctx context.Context, settings domain.RegularParsingSettings) error
	ToggleRegularParsing(ctx context.Context) (bool, error)
	TouchRegularParsingRun(ctx context.Context, at time.Time) error

	MonitorAccounts(ctx context.Context) (domain.MonitorAccountsSettings, error)
	SetMonitorAccounts(ctx context.Context, settings domain.MonitorAccountsSettings) error
	ToggleMonitorAccounts(ctx context.Context) (bool, error)
	TouchMonitorAccountsRun(ctx context.Context, at time.Time) error

	MonitorPosts(ctx context.Context) (domain.MonitorPostsSettings, error)
	SetMonitorPosts(ctx context.Context, settings domain.MonitorPostsSettings) error
	ToggleMonitorPosts(ctx context.Context) (bool, error)
	TouchMonitorPostsRun(ctx context.Context, at time.Time) error
}
