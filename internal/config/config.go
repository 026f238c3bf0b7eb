package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TickerScope/internal/strategy"
)

// Data providers.
const (
	ProviderYahoo  = "yahoo"
	ProviderAlpaca = "alpaca"
	ProviderREST   = "rest"
	ProviderMock   = "mock"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	DataSource DataSource     `yaml:"data_source"`
	Scan       Scan           `yaml:"scan"`
	Indicators Indicators     `yaml:"indicators"`
	Scoring    strategy.Rules `yaml:"scoring"`
	Breaker    Breaker        `yaml:"breaker"`
	Tickers    Tickers        `yaml:"tickers"`
	Cache      Cache          `yaml:"cache"`
	Export     Export         `yaml:"export"`
	Schedule   Schedule       `yaml:"schedule"`
	Telegram   Telegram       `yaml:"telegram"`
	Database   Database       `yaml:"database"`
	Metrics    Metrics        `yaml:"metrics"`
	Log        Log            `yaml:"log"`
	Proxy      string         `yaml:"proxy"`
}

type DataSource struct {
	Provider     string `yaml:"provider"`
	Range        string `yaml:"range"`
	AlpacaKey    string `yaml:"alpaca_api_key"`
	AlpacaSecret string `yaml:"alpaca_api_secret"`
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
}

type Scan struct {
	Lookback    int           `yaml:"lookback"`
	MinHistory  int           `yaml:"min_history"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
	Pause       time.Duration `yaml:"pause"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
}

type Indicators struct {
	EMAAdjust   bool `yaml:"ema_adjust"`
	KDPeriod    int  `yaml:"kd_n"`
	SlopeWindow int  `yaml:"slope_window"`
}

type Breaker struct {
	MinRequests uint32        `yaml:"min_requests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Tickers struct {
	RegistryURL   string   `yaml:"registry_url"`
	MinScrapeRows int      `yaml:"min_scrape_rows"`
	FallbackFile  string   `yaml:"fallback_file"`
	DefaultCodes  []string `yaml:"default_codes"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl"`
}

type Export struct {
	Dir            string `yaml:"dir"`
	Logic          string `yaml:"logic"`
	PromptTemplate string `yaml:"prompt_template"`
}

type Schedule struct {
	ScanCron   string   `yaml:"scan_cron"`
	TopN       int      `yaml:"top_n"`
	Mode       string   `yaml:"mode"`
	Industries []string `yaml:"industries"`
	RunOnStart bool     `yaml:"run_on_start"`
}

type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type Database struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env (when present) and the YAML file at path, then applies
// environment overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{Scoring: strategy.DefaultRules()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"HTTPS_PROXY":        &c.Proxy,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"ALPACA_API_KEY":     &c.DataSource.AlpacaKey,
		"ALPACA_API_SECRET":  &c.DataSource.AlpacaSecret,
		"REST_BASE_URL":      &c.DataSource.BaseURL,
		"REST_API_KEY":       &c.DataSource.APIKey,
		"SCAN_CRON":          &c.Schedule.ScanCron,
		"METRICS_ADDR":       &c.Metrics.Addr,
		"LOG_LEVEL":          &c.Log.Level,
		"EXPORT_DIR":         &c.Export.Dir,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if os.Getenv("RUN_ON_START") == "true" {
		c.Schedule.RunOnStart = true
	}
	if v := os.Getenv("SCAN_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCAN_CONCURRENCY: %w", err)
		}
		c.Scan.Concurrency = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderYahoo
	}
	if c.DataSource.Range == "" {
		c.DataSource.Range = "2y"
	}
	if c.Scan.Lookback == 0 {
		c.Scan.Lookback = 300
	}
	if c.Scan.MinHistory == 0 {
		c.Scan.MinHistory = 200
	}
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = 50
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 1
	}
	if c.Scan.Timeout == 0 {
		c.Scan.Timeout = 15 * time.Second
	}
	if c.Indicators.KDPeriod == 0 {
		c.Indicators.KDPeriod = 9
	}
	if c.Indicators.SlopeWindow == 0 {
		c.Indicators.SlopeWindow = 5
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 20
	}
	if c.Breaker.Interval == 0 {
		c.Breaker.Interval = time.Minute
	}
	if c.Breaker.Timeout == 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Tickers.MinScrapeRows == 0 {
		c.Tickers.MinScrapeRows = 100
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 15 * time.Minute
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 14 * * 1-5"
	}
	if c.Schedule.TopN == 0 {
		c.Schedule.TopN = 10
	}
	if c.Schedule.Mode == "" {
		c.Schedule.Mode = "all"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks value ranges and the credentials the chosen provider needs.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderMock:
	case ProviderAlpaca:
		if c.DataSource.AlpacaKey == "" || c.DataSource.AlpacaSecret == "" {
			return fmt.Errorf("data_source.alpaca_api_key and alpaca_api_secret are required for provider alpaca")
		}
	case ProviderREST:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for provider rest")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be positive")
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be positive")
	}
	if c.Scan.Retries < 0 {
		return fmt.Errorf("scan.retries must not be negative")
	}
	if c.Scan.MinHistory <= 0 || c.Scan.Lookback < c.Scan.MinHistory {
		return fmt.Errorf("scan.lookback (%d) must be at least scan.min_history (%d)", c.Scan.Lookback, c.Scan.MinHistory)
	}
	if c.Indicators.KDPeriod <= 0 || c.Indicators.SlopeWindow < 2 {
		return fmt.Errorf("indicators.kd_n must be positive and indicators.slope_window at least 2")
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.Schedule.TopN <= 0 {
		return fmt.Errorf("schedule.top_n must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether push notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
