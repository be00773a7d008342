package jsonimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
	"github.com/samber/lo"
	"go.uber.org/fx"
)

// Document is the single persisted JSON file. It is read and rewritten
// wholesale on every mutation.
type Document struct {
	Accounts           []domain.Account               `json:"accounts"`
	LastFailedAccounts []domain.Account               `json:"last_failed_accounts"`
	RegularParsing     domain.RegularParsingSettings  `json:"regular_parsing"`
	MonitorAccounts    domain.MonitorAccountsSettings `json:"monitor_accounts"`
	MonitorPosts       domain.MonitorPostsSettings    `json:"monitor_posts"`
}

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type JSONFile struct {
	path   string
	logger logger.Logger

	// Serializes load-modify-save round trips within the process.
	// Admin edits arrive concurrently with scheduler passes.
	mu sync.Mutex
}

func New(opts Opts) *JSONFile {
	return &JSONFile{
		path:   opts.Config.Storage.Path,
		logger: opts.Logger.WithComponent("JSONStorage"),
	}
}

func NewWithPath(path string, log logger.Logger) *JSONFile {
	return &JSONFile{path: path, logger: log}
}

var _ storage.Repository = (*JSONFile)(nil)

func (s *JSONFile) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("storage file is corrupted: %w", err)
	}
	return doc, nil
}

func (s *JSONFile) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

// mutate runs fn against the freshly loaded document and persists the result.
func (s *JSONFile) mutate(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *JSONFile) Accounts(_ context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

func (s *JSONFile) Account(ctx context.Context, id int64) (domain.Account, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	account, found := lo.Find(accounts, func(a domain.Account) bool { return a.ID == id })
	if !found {
		return domain.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (s *JSONFile) AddAccount(_ context.Context, account domain.Account) (domain.Account, error) {
	err := s.mutate(func(doc *Document) error {
		if lo.ContainsBy(doc.Accounts, func(a domain.Account) bool { return a.URL == account.URL }) {
			return storage.ErrAlreadyExists
		}
		account.ID = nextID(doc.Accounts)
		doc.Accounts = append(doc.Accounts, account)
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (s *JSONFile) MutateAccount(_ context.Context, id int64, fn func(account *domain.Account)) (domain.Account, error) {
	var updated domain.Account
	err := s.mutate(func(doc *Document) error {
		for i := range doc.Accounts {
			if doc.Accounts[i].ID == id {
				fn(&doc.Accounts[i])
				updated = doc.Accounts[i]
				return nil
			}
		}
		return storage.ErrNotFound
	})
	if err != nil {
		return domain.Account{}, err
	}
	return updated, nil
}

func (s *JSONFile) DeleteAccount(_ context.Context, id int64) error {
	return s.mutate(func(doc *Document) error {
		filtered := lo.Reject(doc.Accounts, func(a domain.Account, _ int) bool { return a.ID == id })
		if len(filtered) == len(doc.Accounts) {
			return storage.ErrNotFound
		}
		doc.Accounts = filtered
		return nil
	})
}

func (s *JSONFile) LastFailed(_ context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.LastFailedAccounts, nil
}

func (s *JSONFile) SetLastFailed(_ context.Context, accounts []domain.Account) error {
	return s.mutate(func(doc *Document) error {
		doc.LastFailedAccounts = accounts
		return nil
	})
}

func (s *JSONFile) DeleteLastFailed(_ context.Context) (int, error) {
	removed := 0
	err := s.mutate(func(doc *Document) error {
		failedIDs := lo.Map(doc.LastFailedAccounts, func(a domain.Account, _ int) int64 { return a.ID })
		before := len(doc.Accounts)
		doc.Accounts = lo.Reject(doc.Accounts, func(a domain.Account, _ int) bool {
			return lo.Contains(failedIDs, a.ID)
		})
		removed = before - len(doc.Accounts)
		doc.LastFailedAccounts = nil
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *JSONFile) RegularParsing(_ context.Context) (domain.RegularParsingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return domain.RegularParsingSettings{}, err
	}
	return doc.RegularParsing, nil
}

func (s *JSONFile) SetRegularParsing(_ context.Context, settings domain.RegularParsingSettings) error {
	return s.mutate(func(doc *Document) error {
		doc.RegularParsing = settings
		return nil
	})
}

func (s *JSONFile) ToggleRegularParsing(_ context.Context) (bool, error) {
	var enabled bool
	err := s.mutate(func(doc *Document) error {
		doc.RegularParsing.Enabled = !doc.RegularParsing.Enabled
		enabled = doc.RegularParsing.Enabled
		return nil
	})
	return enabled, err
}

func (s *JSONFile) TouchRegularParsingRun(_ context.Context, at time.Time) error {
	return s.mutate(func(doc *Document) error {
		doc.RegularParsing.LastRun = &at
		return nil
	})
}

func (s *JSONFile) MonitorAccounts(_ context.Context) (domain.MonitorAccountsSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return domain.MonitorAccountsSettings{}, err
	}
	return doc.MonitorAccounts, nil
}

func (s *JSONFile) SetMonitorAccounts(_ context.Context, settings domain.MonitorAccountsSettings) error {
	return s.mutate(func(doc *Document) error {
		doc.MonitorAccounts = settings
		return nil
	})
}

func (s *JSONFile) ToggleMonitorAccounts(_ context.Context) (bool, error) {
	var enabled bool
	err := s.mutate(func(doc *Document) error {
		doc.MonitorAccounts.Enabled = !doc.MonitorAccounts.Enabled
		enabled = doc.MonitorAccounts.Enabled
		return nil
	})
	return enabled, err
}

func (s *JSONFile) TouchMonitorAccountsRun(_ context.Context, at time.Time) error {
	return s.mutate(func(doc *Document) error {
		doc.MonitorAccounts.LastRun = &at
		return nil
	})
}

func (s *JSONFile) MonitorPosts(_ context.Context) (domain.MonitorPostsSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return domain.MonitorPostsSettings{}, err
	}
	return doc.MonitorPosts, nil
}

func (s *JSONFile) SetMonitorPosts(_ context.Context, settings domain.MonitorPostsSettings) error {
	return s.mutate(func(doc *Document) error {
		doc.MonitorPosts = settings
		return nil
	})
}

func (s *JSONFile) ToggleMonitorPosts(_ context.Context) (bool, error) {
	var enabled bool
	err := s.mutate(func(doc *Document) error {
		doc.MonitorPosts.Enabled = !doc.MonitorPosts.Enabled
		enabled = doc.MonitorPosts.Enabled
		return nil
	})
	return enabled, err
}

func (s *JSONFile) TouchMonitorPostsRun(_ context.Context, at time.Time) error {
	return s.mutate(func(doc *Document) error {
		doc.MonitorPosts.LastRun = &at
		return nil
	})
}

func nextID(accounts []domain.Account) int64 {
	var max int64
	for _, account := range accounts {
		if account.ID > max {
			max = account.ID
		}
	}
	return max + 1
}
