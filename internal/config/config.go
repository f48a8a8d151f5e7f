package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env       string
		Port      int
		Timezone  string
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"app"`

	Postgres struct {
		Host     string
		Port     int
		DB       string `mapstructure:"db"`
		User     string
		Password string
		// DSN целиком, если задан, важнее отдельных полей
		DSN string
	} `mapstructure:"postgres"`

	WB struct {
		APIHost         string        `mapstructure:"api_host"`
		APIKey          string        `mapstructure:"api_key"`
		MockHost        string        `mapstructure:"mock_host"`
		StrictNumbers   bool          `mapstructure:"strict_numbers"`
		Retries         uint64        `mapstructure:"retries"`
		RetryDelay      time.Duration `mapstructure:"retry_delay"`
		PrimaryTimeout  time.Duration `mapstructure:"primary_timeout"`
		FallbackTimeout time.Duration `mapstructure:"fallback_timeout"`
	} `mapstructure:"wb"`

	Sheets struct {
		SpreadsheetID   string `mapstructure:"spreadsheet_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"sheets"`

	Sync struct {
		Cron string
	} `mapstructure:"sync"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Redis struct {
		Addr     string
		Password string
		LockKey  string        `mapstructure:"lock_key"`
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"redis"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`
}

// ключ viper -> переменные окружения (первая найденная побеждает)
var envBindings = map[string][]string{
	"app.env":                 {"APP_ENV", "NODE_ENV"},
	"app.port":                {"APP_PORT"},
	"app.timezone":            {"APP_TIMEZONE", "TZ"},
	"app.log_format":          {"LOG_FORMAT"},
	"postgres.host":           {"POSTGRES_HOST"},
	"postgres.port":           {"POSTGRES_PORT"},
	"postgres.db":             {"POSTGRES_DB"},
	"postgres.user":           {"POSTGRES_USER"},
	"postgres.password":       {"POSTGRES_PASSWORD"},
	"postgres.dsn":            {"DATABASE_URL"},
	"wb.api_host":             {"WB_API_HOST"},
	"wb.api_key":              {"WB_API_KEY"},
	"wb.mock_host":            {"WB_MOCK_HOST", "API_BASE_URL"},
	"wb.strict_numbers":       {"WB_STRICT_NUMBERS"},
	"wb.retries":              {"WB_RETRIES"},
	"wb.retry_delay":          {"WB_RETRY_DELAY"},
	"wb.primary_timeout":      {"WB_PRIMARY_TIMEOUT"},
	"wb.fallback_timeout":     {"WB_FALLBACK_TIMEOUT"},
	"sheets.spreadsheet_id":   {"SPREADSHEET_ID"},
	"sheets.credentials_file": {"GCP_API_KEY_PATH", "GOOGLE_APPLICATION_CREDENTIALS"},
	"sync.cron":               {"SYNC_CRON"},
	"metrics.enabled":         {"METRICS_ENABLED"},
	"redis.addr":              {"REDIS_ADDR"},
	"redis.password":          {"REDIS_PASSWORD"},
	"redis.lock_key":          {"REDIS_LOCK_KEY"},
	"redis.lock_ttl":          {"REDIS_LOCK_TTL"},
	"telegram.token":          {"TELEGRAM_TOKEN"},
	"telegram.admin_chat_id":  {"TELEGRAM_ADMIN_CHAT_ID"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.timezone", "Europe/Moscow")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.db", "postgres")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dsn", "")

	v.SetDefault("wb.api_host", "https://common-api.wildberries.ru/api/v1")
	v.SetDefault("wb.api_key", "")
	v.SetDefault("wb.mock_host", "http://localhost:3000/api/v1")
	v.SetDefault("wb.strict_numbers", false)
	v.SetDefault("wb.retries", 2)
	v.SetDefault("wb.retry_delay", time.Second)
	v.SetDefault("wb.primary_timeout", 10*time.Second)
	v.SetDefault("wb.fallback_timeout", 5*time.Second)

	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "credentials.json")

	v.SetDefault("sync.cron", "0 0 * * *")
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.lock_key", "wb-tariffs:sync")
	v.SetDefault("redis.lock_ttl", 10*time.Minute)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
}

// Load собирает конфиг: значения по умолчанию, YAML из path (если задан),
// затем переменные окружения, в том числе из .env.
func Load(path string) (Config, error) {
	var c Config

	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return c, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Error собирает все найденные проблемы конфигурации разом.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.App.Port <= 0 || c.App.Port > 65535 {
		add("APP_PORT must be 1..65535, got %d", c.App.Port)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		add("APP_TIMEZONE %q: %v", c.App.Timezone, err)
	}
	if c.App.LogFormat != "json" && c.App.LogFormat != "text" {
		add("LOG_FORMAT must be json or text, got %q", c.App.LogFormat)
	}

	if c.Postgres.DSN == "" {
		if c.Postgres.Host == "" {
			add("POSTGRES_HOST is required")
		}
		if c.Postgres.DB == "" {
			add("POSTGRES_DB is required")
		}
		if c.Postgres.User == "" {
			add("POSTGRES_USER is required")
		}
	}

	if c.WB.APIHost == "" {
		add("WB_API_HOST is required")
	}
	if c.WB.MockHost == "" {
		add("WB_MOCK_HOST is required")
	}
	if c.WB.PrimaryTimeout <= 0 || c.WB.FallbackTimeout <= 0 {
		add("WB timeouts must be positive")
	}
	if c.WB.RetryDelay < 0 {
		add("WB_RETRY_DELAY must not be negative")
	}

	if c.Sheets.SpreadsheetID == "" {
		add("SPREADSHEET_ID is required")
	}
	if c.Sheets.CredentialsFile == "" {
		add("GCP_API_KEY_PATH is required")
	}

	if _, err := cron.ParseStandard(c.Sync.Cron); err != nil {
		add("SYNC_CRON %q: %v", c.Sync.Cron, err)
	}

	if c.Telegram.Token != "" && c.Telegram.AdminChatID == 0 {
		add("TELEGRAM_ADMIN_CHAT_ID is required with TELEGRAM_TOKEN")
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// PostgresDSN собирает строку подключения pgx.
func (c *Config) PostgresDSN() string {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:     net.JoinHostPort(c.Postgres.Host, strconv.Itoa(c.Postgres.Port)),
		Path:     "/" + c.Postgres.DB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c *Config) HTTPAddr() string {
	return ":" + strconv.Itoa(c.App.Port)
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
