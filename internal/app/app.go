package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/fx"

	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/command/commandimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/output"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/parser"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/parser/parserimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform/osnova"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/platform/tenchat"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/scheduler"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/scheduler/schedulerimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets/sheetsimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage/jsonimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/telegram"
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/telegram/telegramimpl"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/config"
	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
	),
	fx.Provide(
		fx.Annotate(
			telegramimpl.New,
			fx.As(new(telegram.Client)),
		),
		osnova.New,
		tenchat.New,
		func(osnovaClient *osnova.Client, tenchatClient *tenchat.Client) *platform.Registry {
			return platform.NewRegistry(osnovaClient, tenchatClient)
		},
		fx.Annotate(
			output.New,
			fx.As(new(output.Writer)),
		),
		fx.Annotate(
			parserimpl.New,
			fx.As(new(parser.Client)),
		),
		fx.Annotate(
			schedulerimpl.New,
			fx.As(new(scheduler.Client)),
		),
		fx.Annotate(
			commandimpl.New,
			fx.As(new(command.Client)),
		),
	),
	jsonimpl.Module,
	sheetsimpl.Module,
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config,
	schedClient scheduler.Client, cmdClient command.Client) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go startHTTPServer(log, cfg)

			if err := schedClient.Start(runCtx); err != nil {
				cancel()
				return err
			}

			go func() {
				if err := cmdClient.HandleUpdates(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("Command handler stopped", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func startHTTPServer(log logger.Logger, cfg *config.Config) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Error("Failed to write health check response", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), nil); err != nil {
		log.Error("Server failed to start", "error", err)
	}
}
