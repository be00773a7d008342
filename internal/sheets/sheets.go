package sheets

import (
	"context"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

// Client is the spreadsheet sink. Implementations must route every
// remote call through the retry wrapper; the Sheets API is rate-limited
// and flaky.
//
//go:generate go run go.uber.org/mock/mockgen -source=sheets.go -destination=mocks/mock.go
type Client interface {
	// UpdateUserPosts rewrites the per-account worksheet with the
	// fetched posts, one row per post.
	UpdateUserPosts(ctx context.Context, title string, posts []domain.Post, parsedAt time.Time) error

	// UpdateRegularParsing appends-or-updates aggregate statistics
	// rows keyed by account URL.
	UpdateRegularParsing(ctx context.Context, stats []domain.AccountStats) error

	// UpdateMonitorAccounts appends rows to the account-change log.
	UpdateMonitorAccounts(ctx context.Context, changes []domain.AccountChange) error

	// UpdateMonitorPosts appends rows to the deleted-posts log.
	UpdateMonitorPosts(ctx context.Context, deleted []domain.DeletedPost) error

	// ReadPostIDs re-reads a per-account worksheet and returns the
	// post ids recorded there, mapped to their URLs. Post history is
	// never stored locally; the sheet is the history.
	ReadPostIDs(ctx context.Context, title string) (map[int64]string, error)

	// ReadReportedDeleted returns ids already present in the
	// deleted-posts log, so independent monitoring loops do not alert
	// on the same deletion twice.
	ReadReportedDeleted(ctx context.Context) (map[int64]struct{}, error)
}

// Title is the worksheet name for one account's post table.
func Title(sheetPrefix, username string) string {
	return sheetPrefix + "-" + username
}
