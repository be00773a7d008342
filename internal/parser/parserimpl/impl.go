package parserimpl

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/output"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/parser"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/errors"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Registry *platform.Registry
	Storage  storage.Repository
	Sheets   sheets.Client
	Output   output.Writer
	Logger   logger.Logger
	Config   *config.Config
}

type ParserImpl struct {
	Registry *platform.Registry
	Storage  storage.Repository
	Sheets   sheets.Client
	Output   output.Writer
	Logger   logger.Logger

	workers  int
	location *time.Location
}

func New(opts Opts) *ParserImpl {
	loc, err := time.LoadLocation(opts.Config.App.Timezone)
	if err != nil {
		loc = time.Local
		opts.Logger.Warn("Failed to load configured timezone, using local", "timezone", opts.Config.App.Timezone, "error", err)
	}

	workers := opts.Config.Parser.Workers
	if workers < 1 {
		workers = 1
	}

	return &ParserImpl{
		Registry: opts.Registry,
		Storage:  opts.Storage,
		Sheets:   opts.Sheets,
		Output:   opts.Output,
		Logger:   opts.Logger.WithComponent("Parser"),
		workers:  workers,
		location: loc,
	}
}

var _ parser.Client = (*ParserImpl)(nil)

func (p *ParserImpl) ParseAccount(ctx context.Context, account domain.Account, mode domain.ParseMode) domain.ParseResult {
	result := domain.ParseResult{Account: account}

	adapter, err := p.Registry.ForDomain(account.Domain)
	if err != nil {
		result.Err = err
		return result
	}

	identity, err := adapter.ResolveIdentity(ctx, platform.RefFromAccount(account))
	if err != nil {
		result.Err = errors.Wrap(err, "failed to resolve identity")
		return result
	}

	account.Name = identity.Name
	if identity.UserID != 0 {
		account.UserID = identity.UserID
	}
	if _, err := p.Storage.MutateAccount(ctx, account.ID, func(a *domain.Account) {
		a.Name = account.Name
		a.UserID = account.UserID
	}); err != nil {
		p.Logger.Warn("Failed to persist refreshed account name", "accountID", account.ID, "error", err)
	}
	result.Account = account

	if identity.IsBlocked {
		p.Logger.Warn("Account is blocked, skipping", "username", account.Username)
		result.Blocked = true
		result.Err = parser.ErrAccountBlocked
		return result
	}

	p.Logger.Info("Fetching posts", "username", account.Username, "domain", account.Domain)
	posts, err := adapter.FetchPosts(ctx, platform.RefFromAccount(account), platform.FetchOpts{})
	if err != nil {
		result.Err = errors.Wrap(err, "failed to fetch posts")
		return result
	}

	p.Logger.Info("Fetched posts", "username", account.Username, "count", len(posts))
	if len(posts) == 0 {
		return result
	}

	if mode == "" {
		mode = account.Mode
	}

	if mode == domain.ModeServer || mode == domain.ModeBoth {
		if _, err := p.Output.WritePosts(ctx, account.Domain, account.Username, posts, account.LastPostID); err != nil {
			result.Err = errors.Wrap(err, "failed to unload posts to server")
			return result
		}

		account.LastPostID = posts[0].ID
		if _, err := p.Storage.MutateAccount(ctx, account.ID, func(a *domain.Account) {
			a.LastPostID = account.LastPostID
		}); err != nil {
			result.Err = errors.Wrap(err, "failed to persist checkpoint")
			return result
		}
		result.Account = account
		p.Logger.Info("Posts saved to server", "username", account.Username, "checkpoint", account.LastPostID)
	}

	if mode == domain.ModeSheet || mode == domain.ModeBoth {
		now := time.Now().In(p.location)
		stats := parser.ExtractStats(account, posts, now)

		if err := p.Sheets.UpdateRegularParsing(ctx, []domain.AccountStats{stats}); err != nil {
			result.Err = errors.Wrap(err, "failed to update statistics sheet")
			return result
		}

		title := sheets.Title(platform.SheetPrefix(account.Domain), account.Username)
		if err := p.Sheets.UpdateUserPosts(ctx, title, posts, now); err != nil {
			result.Err = errors.Wrap(err, "failed to unload posts to sheet")
			return result
		}
		p.Logger.Info("Posts unloaded to spreadsheet", "username", account.Username, "sheet", title)
	}

	return result
}

func (p *ParserImpl) ParseAll(ctx context.Context, accounts []domain.Account) []domain.ParseResult {
	results := make([]domain.ParseResult, len(accounts))

	var wg sync.WaitGroup
	pool, _ := ants.NewPool(p.workers, ants.WithPreAlloc(true))
	defer pool.Release()

	for i, account := range accounts {
		wg.Add(1)
		index, accountToParse := i, account

		err := pool.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					results[index] = domain.ParseResult{
						Account: accountToParse,
						Err:     errors.New("panic during account parsing"),
					}
					p.Logger.Error("Panic during account parsing", "username", accountToParse.Username, "panic", r)
				}
				wg.Done()
			}()

			select {
			case <-ctx.Done():
				results[index] = domain.ParseResult{Account: accountToParse, Err: ctx.Err()}
			default:
				results[index] = p.ParseAccount(ctx, accountToParse, accountToParse.Mode)
			}
		})
		if err != nil {
			wg.Done()
			results[index] = domain.ParseResult{Account: accountToParse, Err: err}
			p.Logger.Error("Failed to submit parse job to pool", "username", accountToParse.Username, "error", err)
		}
	}

	wg.Wait()
	return results
}
