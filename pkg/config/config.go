package config

import (
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
		Timezone  string `env:"APP_TIMEZONE" env-default:"Europe/Moscow"`
	}
	Telegram struct {
		Token    string  `env:"TELEGRAM_TOKEN"`
		AdminIDs []int64 `env:"TELEGRAM_ADMIN_IDS" env-separator:","`
	}
	Storage struct {
		Path string `env:"STORAGE_PATH" env-default:"storage/storage.json"`
	}
	Output struct {
		Directory string `env:"OUTPUT_DIRECTORY" env-default:"output"`
	}
	Sheets struct {
		CredentialsPath string `env:"SHEETS_CREDENTIALS_PATH" env-default:"google_credentials.json"`
		SpreadsheetID   string `env:"SHEETS_SPREADSHEET_ID"`
	}
	Parser struct {
		Workers       int `env:"PARSER_WORKERS" env-default:"1"`
		PageDelaySecs int `env:"PARSER_PAGE_DELAY_SECONDS" env-default:"1"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}
