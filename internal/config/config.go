package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/BuyBio/BuyBio/internal/model"
)

// Data providers understood by DataSource.Provider.
const (
	ProviderKIS   = "kis"
	ProviderChart = "chart"
	ProviderYahoo = "yahoo"
	ProviderMock  = "mock"
)

// MaxSectionKeywords caps the number of keyword sections in a report.
const MaxSectionKeywords = 3

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider    string        `yaml:"provider"`
		BaseURL     string        `yaml:"base_url"`
		AppKey      string        `yaml:"app_key"`
		AppSecret   string        `yaml:"app_secret"`
		TokenTTL    time.Duration `yaml:"token_ttl"`
		YahooSuffix string        `yaml:"yahoo_suffix"`
		HistoryDays int           `yaml:"history_days"`
	} `yaml:"data_source"`
	Analysis struct {
		MinBars    int `yaml:"min_bars"`
		MACDFast   int `yaml:"macd_fast"`
		MACDSlow   int `yaml:"macd_slow"`
		MACDSignal int `yaml:"macd_signal"`
	} `yaml:"analysis"`
	Scoring struct {
		Weights map[string]float64 `yaml:"weights"`
	} `yaml:"scoring"`
	Screen struct {
		Cron        string   `yaml:"cron"`
		TopK        int      `yaml:"top_k"`
		SectionK    int      `yaml:"section_k"`
		Workers     int      `yaml:"workers"`
		IncludeSell bool     `yaml:"include_sell"`
		Keywords    []string `yaml:"keywords"`
	} `yaml:"screen"`
	Watchlist []model.Instrument `yaml:"watchlist"`
	Telegram  struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// envOverrides are the environment variables that take precedence over the
// YAML file. Unset variables leave the file value alone.
type envOverrides struct {
	Provider      string `envconfig:"DATA_PROVIDER"`
	ChartBaseURL  string `envconfig:"CHART_BASE_URL"`
	AppKey        string `envconfig:"KIS_APP_KEY"`
	AppSecret     string `envconfig:"KIS_APP_SECRET"`
	HistoryDays   int    `envconfig:"HISTORY_DAYS"`
	BotToken      string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID        string `envconfig:"TELEGRAM_CHAT_ID"`
	SQLitePath    string `envconfig:"SQLITE_PATH"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	ServerAddr    string `envconfig:"SERVER_ADDR"`
	ScreenCron    string `envconfig:"SCREEN_CRON"`
	TopK          int    `envconfig:"SCREEN_TOP_K"`
	Workers       int    `envconfig:"SCREEN_WORKERS"`
	Proxy         string `envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; variables already set in the process win.
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv(e envOverrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.DataSource.Provider, e.Provider)
	set(&c.DataSource.BaseURL, e.ChartBaseURL)
	set(&c.DataSource.AppKey, e.AppKey)
	set(&c.DataSource.AppSecret, e.AppSecret)
	set(&c.Telegram.BotToken, e.BotToken)
	set(&c.Telegram.ChatID, e.ChatID)
	set(&c.Database.SQLitePath, e.SQLitePath)
	set(&c.Redis.Addr, e.RedisAddr)
	set(&c.Redis.Password, e.RedisPassword)
	set(&c.Server.Addr, e.ServerAddr)
	set(&c.Screen.Cron, e.ScreenCron)
	set(&c.Proxy, e.Proxy)
	if e.HistoryDays > 0 {
		c.DataSource.HistoryDays = e.HistoryDays
	}
	if e.TopK > 0 {
		c.Screen.TopK = e.TopK
	}
	if e.Workers > 0 {
		c.Screen.Workers = e.Workers
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		switch {
		case c.DataSource.AppKey != "":
			c.DataSource.Provider = ProviderKIS
		case c.DataSource.BaseURL != "":
			c.DataSource.Provider = ProviderChart
		default:
			c.DataSource.Provider = ProviderYahoo
		}
	}
	if c.DataSource.TokenTTL == 0 {
		c.DataSource.TokenTTL = 23 * time.Hour
	}
	if c.DataSource.YahooSuffix == "" {
		c.DataSource.YahooSuffix = ".KS"
	}
	// Enough trading days for DEMA120, which needs 239 bars.
	if c.DataSource.HistoryDays == 0 {
		c.DataSource.HistoryDays = 250
	}
	if c.Analysis.MinBars == 0 {
		c.Analysis.MinBars = 50
	}
	if c.Screen.Cron == "" {
		c.Screen.Cron = "0 40 15 * * 1-5"
	}
	if c.Screen.TopK == 0 {
		c.Screen.TopK = 10
	}
	if c.Screen.SectionK == 0 {
		c.Screen.SectionK = 3
	}
	if c.Screen.Workers == 0 {
		c.Screen.Workers = 4
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 6 * time.Hour
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/buybio.db"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderKIS:
		if c.DataSource.AppKey == "" || c.DataSource.AppSecret == "" {
			return fmt.Errorf("data_source.app_key and app_secret are required for provider %q", ProviderKIS)
		}
	case ProviderChart:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for provider %q", ProviderChart)
		}
	case ProviderYahoo, ProviderMock:
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.HistoryDays < c.Analysis.MinBars {
		return fmt.Errorf("data_source.history_days (%d) must cover analysis.min_bars (%d)",
			c.DataSource.HistoryDays, c.Analysis.MinBars)
	}
	if c.Analysis.MinBars < 1 {
		return fmt.Errorf("analysis.min_bars must be positive")
	}
	if c.Analysis.MACDFast != 0 && c.Analysis.MACDSlow != 0 && c.Analysis.MACDFast >= c.Analysis.MACDSlow {
		return fmt.Errorf("analysis.macd_fast must be below macd_slow")
	}
	for name, w := range c.Scoring.Weights {
		if !knownIndicator(name) {
			return fmt.Errorf("scoring.weights: unknown indicator %q", name)
		}
		if w <= 0 {
			return fmt.Errorf("scoring.weights.%s must be positive", name)
		}
	}
	if c.Screen.TopK < 1 || c.Screen.SectionK < 1 {
		return fmt.Errorf("screen.top_k and screen.section_k must be positive")
	}
	if c.Screen.Workers < 1 {
		return fmt.Errorf("screen.workers must be positive")
	}
	if len(c.Screen.Keywords) > MaxSectionKeywords {
		return fmt.Errorf("screen.keywords: at most %d keywords", MaxSectionKeywords)
	}
	seen := make(map[string]bool, len(c.Watchlist))
	for i, inst := range c.Watchlist {
		if inst.Code == "" {
			return fmt.Errorf("watchlist[%d].code is required", i)
		}
		if seen[inst.Code] {
			return fmt.Errorf("watchlist: duplicate code %s", inst.Code)
		}
		seen[inst.Code] = true
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func knownIndicator(name string) bool {
	for _, ind := range model.Indicators {
		if string(ind) == name {
			return true
		}
	}
	return false
}
