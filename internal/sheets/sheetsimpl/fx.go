package sheetsimpl

import (
	"github.com/dmvasilenko/blog-parser-telegram-bot/internal/sheets"
	"go.uber.org/fx"
)

var Module = fx.Module("sheets",
	fx.Provide(
		fx.Annotate(
			New,
			fx.As(new(sheets.Client)),
		),
	),
)
