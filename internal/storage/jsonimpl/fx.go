package jsonimpl

import (
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("json_storage",
	fx.Provide(
		fx.Annotate(
			New,
			fx.As(new(storage.Repository)),
		),
	),
)
