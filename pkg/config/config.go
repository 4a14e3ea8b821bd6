package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     string        `mapstructure:"SERVER_PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	LedgerDriver string `mapstructure:"LEDGER_DRIVER"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	PostgresURL  string `mapstructure:"POSTGRES_URL"`

	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int           `mapstructure:"REDIS_DB"`
	DescriptionCacheTTL time.Duration `mapstructure:"DESCRIPTION_CACHE_TTL"`

	BskyServiceURL string        `mapstructure:"BSKY_SERVICE_URL"`
	RemoteTimeout  time.Duration `mapstructure:"REMOTE_TIMEOUT"`
	FeedPageSize   int           `mapstructure:"FEED_PAGE_SIZE"`

	OpenAIAPIKey          string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL         string        `mapstructure:"OPENAI_BASE_URL"`
	AltGenModel           string        `mapstructure:"ALTGEN_MODEL"`
	GenerateTimeout       time.Duration `mapstructure:"GENERATE_TIMEOUT"`
	GenerateRatePerSecond float64       `mapstructure:"GENERATE_RATE_PER_SECOND"`

	ApplyConcurrency int    `mapstructure:"APPLY_CONCURRENCY"`
	AllowedOrigins   string `mapstructure:"ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"SERVER_PORT":              "8080",
	"LOG_LEVEL":                "info",
	"REQUEST_TIMEOUT":          "5m",
	"LEDGER_DRIVER":            LedgerSQLite,
	"SQLITE_PATH":              "data/alttext.db",
	"POSTGRES_URL":             "",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"DESCRIPTION_CACHE_TTL":    "168h",
	"BSKY_SERVICE_URL":         "https://bsky.social",
	"REMOTE_TIMEOUT":           "20s",
	"FEED_PAGE_SIZE":           100,
	"OPENAI_API_KEY":           "",
	"OPENAI_BASE_URL":          "",
	"ALTGEN_MODEL":             "gpt-4o-mini",
	"GENERATE_TIMEOUT":         "30s",
	"GENERATE_RATE_PER_SECOND": 2.0,
	"APPLY_CONCURRENCY":        4,
	"ALLOWED_ORIGINS":          "http://localhost:5173,http://127.0.0.1:5173",
}

// Load reads configuration from .env, an optional config.yaml and the environment.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.LedgerDriver {
	case LedgerSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite ledger")
		}
	case LedgerPostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_DRIVER %q", c.LedgerDriver)
	}
	if c.ApplyConcurrency <= 0 {
		return errors.New("APPLY_CONCURRENCY must be positive")
	}
	if c.FeedPageSize <= 0 || c.FeedPageSize > 100 {
		return errors.New("FEED_PAGE_SIZE must be between 1 and 100")
	}
	if c.GenerateRatePerSecond <= 0 {
		return errors.New("GENERATE_RATE_PER_SECOND must be positive")
	}
	return nil
}

// GenerationEnabled reports whether a generation credential is configured.
func (c *Config) GenerationEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
