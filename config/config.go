package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL"`
	Postgres    Postgres
	Telegram    Telegram
	Redis       Redis
	API         API
	Cache       Cache
	Jobs        Jobs
	Market      Market
	Forecast    Forecast
	GoogleDrive GoogleDrive
	// SessionExpiration is how long per-chat forecast preferences are kept.
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"720h"`
	PositionsPerPage  int           `env:"POSITIONS_PER_PAGE" envDefault:"10"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES"`
	// OwnerChatID receives daily summaries and is the only chat the bot answers.
	OwnerChatID int64 `env:"TELEGRAM_OWNER_CHAT_ID"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug           bool          `env:"API_DEBUG"`
	Timeout         time.Duration `env:"API_TIMEOUT"`
	BcbApi          BcbApi
	StatusInvestApi StatusInvestApi
	HolidaysApi     HolidaysApi
}

type BcbApi struct {
	Url              string `env:"BCB_API_URL" envDefault:"https://api.bcb.gov.br"`
	ArchiveUrl       string `env:"BCB_ARCHIVE_URL" envDefault:"http://www4.bcb.gov.br"`
	SelicSeriesID    int    `env:"BCB_SELIC_SERIES_ID" envDefault:"11"`
	RecentRatesCount int    `env:"BCB_RECENT_RATES_COUNT" envDefault:"10"`
}

type StatusInvestApi struct {
	Url               string  `env:"STATUS_INVEST_API_URL" envDefault:"https://statusinvest.com.br"`
	RequestsPerSecond float64 `env:"STATUS_INVEST_API_RPS" envDefault:"2"`
}

type HolidaysApi struct {
	Url   string `env:"HOLIDAYS_API_URL" envDefault:"https://api.invertexto.com"`
	Token string `env:"HOLIDAYS_API_TOKEN"`
}

type Cache struct {
	HolidaysExpiration     time.Duration `env:"CACHE_HOLIDAYS_EXPIRATION" envDefault:"168h"`
	CalendarMemoExpiration time.Duration `env:"CACHE_CALENDAR_MEMO_EXPIRATION" envDefault:"24h"`
}

type Jobs struct {
	// DailyUpdateAt is a wall-clock time in HH:MM of Timezone.
	DailyUpdateAt string        `env:"DAILY_UPDATE_AT" envDefault:"08:00"`
	RetryBackoff  time.Duration `env:"DAILY_UPDATE_RETRY_BACKOFF" envDefault:"5m"`
	MaxRetries    int           `env:"DAILY_UPDATE_MAX_RETRIES" envDefault:"3"`
	LockTTL       time.Duration `env:"DAILY_UPDATE_LOCK_TTL" envDefault:"30m"`
	Timezone      string        `env:"JOBS_TIMEZONE" envDefault:"America/Sao_Paulo"`
	CleanDriveAt  string        `env:"CLEAN_DRIVE_AT" envDefault:"03:00"`
}

type Market struct {
	ReferenceCode             string          `env:"MARKET_REFERENCE_CODE" envDefault:"BRSTNCLF1RU6"`
	Jurisdiction              string          `env:"MARKET_JURISDICTION" envDefault:"MG"`
	DefaultMonthlyRatePercent decimal.Decimal `env:"MARKET_DEFAULT_MONTHLY_RATE_PERCENT" envDefault:"0.85"`
}

type Forecast struct {
	DefaultContribution decimal.Decimal `env:"FORECAST_DEFAULT_CONTRIBUTION" envDefault:"1500"`
	DefaultGoal         decimal.Decimal `env:"FORECAST_DEFAULT_GOAL" envDefault:"450"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

// Location returns the jobs time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Jobs.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
