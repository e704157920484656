package main

import (
	"fmt"
	"log"

	"github.com/BuyBio/BuyBio/internal/analyzer"
	"github.com/BuyBio/BuyBio/internal/collector"
	"github.com/BuyBio/BuyBio/internal/config"
	"github.com/BuyBio/BuyBio/internal/metrics"
	"github.com/BuyBio/BuyBio/internal/notifier"
	"github.com/BuyBio/BuyBio/internal/recorder"
	"github.com/BuyBio/BuyBio/internal/scheduler"
	"github.com/BuyBio/BuyBio/internal/screener"
	"github.com/BuyBio/BuyBio/internal/store/redis"
	"github.com/BuyBio/BuyBio/internal/strategy"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	collector *collector.Collector
	screener  *screener.Screener
	recorder  recorder.Recorder
	telegram  *notifier.TelegramNotifier
	options   screener.Options

	closers []func() error
}

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	a := &app{cfg: cfg, metrics: metrics.New(nil)}

	fetcher, err := a.newFetcher()
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	if cfg.Redis.Addr != "" {
		cache, err := redis.NewBarCache(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, fetcher)
		if err != nil {
			log.Printf("[WARN] redis cache disabled: %v", err)
		} else {
			cache.Metrics = a.metrics
			fetcher = cache
			a.closers = append(a.closers, cache.Close)
		}
	}

	opts := analyzer.DefaultOptions()
	opts.MinBars = cfg.Analysis.MinBars
	if cfg.Analysis.MACDFast > 0 {
		opts.MACDFast = cfg.Analysis.MACDFast
	}
	if cfg.Analysis.MACDSlow > 0 {
		opts.MACDSlow = cfg.Analysis.MACDSlow
	}
	if cfg.Analysis.MACDSignal > 0 {
		opts.MACDSignal = cfg.Analysis.MACDSignal
	}
	scorer := strategy.NewScorer(strategy.DefaultParams().WithWeights(cfg.Scoring.Weights))

	a.collector = collector.NewCollector(fetcher, analyzer.New(opts), scorer, cfg.DataSource.HistoryDays)
	a.collector.Metrics = a.metrics
	a.screener = screener.New(a.collector, cfg.Screen.Workers)
	a.screener.Metrics = a.metrics
	a.options = screener.Options{
		TopK:        cfg.Screen.TopK,
		SectionK:    cfg.Screen.SectionK,
		IncludeSell: cfg.Screen.IncludeSell,
		Keywords:    cfg.Screen.Keywords,
	}

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			a.recorder = sr
			a.closers = append(a.closers, sr.Close)
		}
	}

	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}
	return a, nil
}

func (a *app) newFetcher() (collector.Fetcher, error) {
	ds := a.cfg.DataSource
	switch ds.Provider {
	case config.ProviderKIS:
		return collector.NewKISFetcher(ds.BaseURL, ds.AppKey, ds.AppSecret, collector.NewTokenCache(ds.TokenTTL), a.cfg.Proxy), nil
	case config.ProviderChart:
		return collector.NewChartFetcher(ds.BaseURL, a.cfg.Proxy), nil
	case config.ProviderYahoo:
		return collector.NewYahooFetcher(ds.YahooSuffix, a.cfg.Proxy), nil
	case config.ProviderMock:
		return &collector.MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
	}
}

// notifier returns the Telegram notifier as a scheduler.Notifier, or nil
// when Telegram is not configured.
func (a *app) notifier() scheduler.Notifier {
	if a.telegram == nil {
		return nil
	}
	return a.telegram
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[WARN] close: %v", err)
		}
	}
}
