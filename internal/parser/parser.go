package parser

import (
	"context"
	"errors"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
)

// ErrAccountBlocked marks the expected business outcome of scraping a
// suspended profile. It is carried inside ParseResult, never used as
// control flow.
var ErrAccountBlocked = errors.New("account is blocked")

type Client interface {
	// ParseAccount runs the full per-account pipeline: re-resolve
	// identity, fetch posts, unload to the sinks selected by mode and
	// advance the checkpoint. The returned result is never a panic or
	// a thrown error; failures are recorded in ParseResult.Err.
	ParseAccount(ctx context.Context, account domain.Account, mode domain.ParseMode) domain.ParseResult

	// ParseAll runs ParseAccount for every account through the shared
	// bounded worker gate, in each account's own mode.
	ParseAll(ctx context.Context, accounts []domain.Account) []domain.ParseResult
}
