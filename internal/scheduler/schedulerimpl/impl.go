package schedulerimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/parser"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/scheduler"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/telegram"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

// pollInterval is how often each loop re-evaluates its should-run
// predicate against the persisted settings.
const pollInterval = 10 * time.Second

type Opts struct {
	fx.In

	Storage  storage.Repository
	Parser   parser.Client
	Registry *platform.Registry
	Sheets   sheets.Client
	Telegram telegram.Client
	Logger   logger.Logger
	Config   *config.Config
}

type SchedulerImpl struct {
	Storage  storage.Repository
	Parser   parser.Client
	Registry *platform.Registry
	Sheets   sheets.Client
	Telegram telegram.Client
	Logger   logger.Logger

	location *time.Location
}

func New(opts Opts) *SchedulerImpl {
	loc, err := time.LoadLocation(opts.Config.App.Timezone)
	if err != nil {
		loc = time.Local
		opts.Logger.Warn("Failed to load configured timezone, using local", "timezone", opts.Config.App.Timezone, "error", err)
	}

	return &SchedulerImpl{
		Storage:  opts.Storage,
		Parser:   opts.Parser,
		Registry: opts.Registry,
		Sheets:   opts.Sheets,
		Telegram: opts.Telegram,
		Logger:   opts.Logger.WithComponent("Scheduler"),
		location: loc,
	}
}

var _ scheduler.Client = (*SchedulerImpl)(nil)

func (s *SchedulerImpl) RunRegularParsingNow(ctx context.Context) {
	s.runRegularParsing(ctx)
}

func (s *SchedulerImpl) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	loops := []struct {
		name string
		task func(context.Context)
	}{
		{"regular_parsing", s.regularParsingTick},
		{"monitor_accounts", s.monitorAccountsTick},
		{"monitor_posts", s.monitorPostsTick},
	}

	for _, loop := range loops {
		name, task := loop.name, loop.task
		_, err := sched.NewJob(
			gocron.DurationJob(pollInterval),
			gocron.NewTask(func() {
				if ctx.Err() != nil {
					return
				}
				defer func() {
					if r := recover(); r != nil {
						s.Logger.Error("Panic in scheduler loop", "loop", name, "panic", r)
					}
				}()
				task(ctx)
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule %s loop: %w", name, err)
		}
	}

	sched.Start()

	go func() {
		<-ctx.Done()
		s.Logger.Info("Stopping monitoring scheduler")
		if err := sched.Shutdown(); err != nil {
			s.Logger.Error("Failed to shut down scheduler", "error", err)
		}
	}()

	return nil
}

func (s *SchedulerImpl) now() time.Time {
	return time.Now().In(s.location)
}

func (s *SchedulerImpl) regularParsingTick(ctx context.Context) {
	settings, err := s.Storage.RegularParsing(ctx)
	if err != nil {
		s.Logger.Error("Failed to load regular parsing settings", "error", err)
		return
	}
	if !scheduler.ShouldRunRegularParsing(settings, s.now()) {
		return
	}
	s.runRegularParsing(ctx)
}

func (s *SchedulerImpl) monitorAccountsTick(ctx context.Context) {
	settings, err := s.Storage.MonitorAccounts(ctx)
	if err != nil {
		s.Logger.Error("Failed to load account monitoring settings", "error", err)
		return
	}
	if !scheduler.ShouldRunMonitorAccounts(settings, s.now()) {
		return
	}
	s.runMonitorAccounts(ctx, settings)
}

func (s *SchedulerImpl) monitorPostsTick(ctx context.Context) {
	settings, err := s.Storage.MonitorPosts(ctx)
	if err != nil {
		s.Logger.Error("Failed to load post monitoring settings", "error", err)
		return
	}
	if !scheduler.ShouldRunMonitorPosts(settings, s.now()) {
		return
	}
	s.runMonitorPosts(ctx, settings)
}

func platformEnabled(domainName string, dtf, vc, tenchat bool) bool {
	switch domainName {
	case platform.DomainDTF:
		return dtf
	case platform.DomainVC:
		return vc
	case platform.DomainTenchat:
		return tenchat
	}
	return false
}
