package sheetsimpl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/domain"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/formatter"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/retry"
	"go.uber.org/fx"
)

// Worksheet names for the per-purpose log tables.
const (
	statsSheet    = "Общая статистика"
	accountsSheet = "Мониторинг аккаунтов"
	deletedSheet  = "Удаленные посты"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type Impl struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	logger        logger.Logger
	retryCfg      retry.Config
}

func New(opts Opts) (*Impl, error) {
	ctx := context.Background()

	credentials, err := os.ReadFile(opts.Config.Sheets.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentials, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheets credentials: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Impl{
		svc:           svc,
		spreadsheetID: opts.Config.Sheets.SpreadsheetID,
		logger:        opts.Logger.WithComponent("Sheets"),
		retryCfg:      retry.DefaultConfig(),
	}, nil
}

var _ sheets.Client = (*Impl)(nil)

func (s *Impl) UpdateUserPosts(ctx context.Context, title string, posts []domain.Post, parsedAt time.Time) error {
	if len(posts) == 0 {
		return nil
	}

	sheetID, err := s.ensureSheet(ctx, title)
	if err != nil {
		return err
	}

	if err := s.clearSheet(ctx, title); err != nil {
		return err
	}

	values := [][]any{{
		"ID", "URL", "Название статьи", "Просмотры", "Добавлено", "Автор", "Парсинг",
		"Дней с публикации", "Просмотров/день",
	}}
	for i, post := range posts {
		row := i + 2
		values = append(values, []any{
			post.ID,
			post.URL,
			post.Title,
			post.Views,
			formatter.FormatDateTime(post.PublishedAt.In(parsedAt.Location())),
			post.Author,
			formatter.FormatDateTime(parsedAt),
			fmt.Sprintf(`=DATEDIF(E%d;G%d;"d")`, row, row),
			fmt.Sprintf(`=IF(H%d=0;D%d/1;ROUND(D%d/H%d))`, row, row, row, row),
		})
	}

	if err := s.updateValues(ctx, title+"!A1", values); err != nil {
		return err
	}
	return s.freezeHeader(ctx, sheetID)
}

func (s *Impl) UpdateRegularParsing(ctx context.Context, stats []domain.AccountStats) error {
	if len(stats) == 0 {
		return nil
	}

	if _, err := s.ensureSheet(ctx, statsSheet); err != nil {
		return err
	}

	existing, err := s.readValues(ctx, statsSheet+"!A1:G")
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		header := [][]any{{
			"URL", "Имя", "Постов сегодня", "Просмотров сегодня", "Всего постов", "Всего просмотров", "Обновлено",
		}}
		if err := s.updateValues(ctx, statsSheet+"!A1", header); err != nil {
			return err
		}
		existing = header
	}

	// Rows are keyed by account URL: update in place or append.
	rowByURL := map[string]int{}
	for i, row := range existing {
		if i == 0 || len(row) == 0 {
			continue
		}
		if url, ok := row[0].(string); ok {
			rowByURL[url] = i + 1
		}
	}

	now := formatter.FormatDateTime(time.Now())
	nextRow := len(existing) + 1
	for _, stat := range stats {
		row := []any{stat.URL, stat.Name, stat.TodayPosts, stat.TodayViews, stat.TotalPosts, stat.TotalViews, now}

		target, ok := rowByURL[stat.URL]
		if !ok {
			target = nextRow
			nextRow++
		}
		if err := s.updateValues(ctx, fmt.Sprintf("%s!A%d", statsSheet, target), [][]any{row}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Impl) UpdateMonitorAccounts(ctx context.Context, changes []domain.AccountChange) error {
	if len(changes) == 0 {
		return nil
	}

	if _, err := s.ensureSheet(ctx, accountsSheet); err != nil {
		return err
	}

	now := formatter.FormatDateTime(time.Now())
	values := make([][]any, 0, len(changes))
	for _, change := range changes {
		values = append(values, []any{change.URL, change.Name, change.Status, change.CurrentURL, now})
	}
	return s.appendValues(ctx, accountsSheet+"!A1", values)
}

func (s *Impl) UpdateMonitorPosts(ctx context.Context, deleted []domain.DeletedPost) error {
	if len(deleted) == 0 {
		return nil
	}

	if _, err := s.ensureSheet(ctx, deletedSheet); err != nil {
		return err
	}

	now := formatter.FormatDateTime(time.Now())
	values := make([][]any, 0, len(deleted))
	for _, post := range deleted {
		values = append(values, []any{post.AccountURL, post.Name, post.PostID, post.PostURL, now})
	}
	return s.appendValues(ctx, deletedSheet+"!A1", values)
}

func (s *Impl) ReadPostIDs(ctx context.Context, title string) (map[int64]string, error) {
	rows, err := s.readValues(ctx, title+"!A2:B")
	if err != nil {
		return nil, err
	}

	ids := make(map[int64]string, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		id, err := parseCellID(row[0])
		if err != nil {
			continue
		}
		url := ""
		if len(row) > 1 {
			url, _ = row[1].(string)
		}
		ids[id] = url
	}
	return ids, nil
}

func (s *Impl) ReadReportedDeleted(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.readValues(ctx, deletedSheet+"!C2:C")
	if err != nil {
		return nil, err
	}

	ids := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if id, err := parseCellID(row[0]); err == nil {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

func parseCellID(cell any) (int64, error) {
	switch v := cell.(type) {
	case string:
		return strconv.ParseInt(v, 10, 64)
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected cell type %T", cell)
	}
}
