package cli

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"TickerScope/internal/analyzer"
	"TickerScope/internal/collector"
	"TickerScope/internal/config"
	"TickerScope/internal/logging"
	"TickerScope/internal/metrics"
	"TickerScope/internal/recorder"
	"TickerScope/internal/scanner"
	"TickerScope/internal/tickers"
)

// app carries the loaded configuration and the components built from it.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newApp(cfgPath, logLevel string) (*app, error) {
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	return &app{cfg: cfg, log: logger, registry: reg, metrics: metrics.New(reg)}, nil
}

// provider returns the configured bar source.
func (a *app) provider() collector.Fetcher {
	ds := a.cfg.DataSource
	switch ds.Provider {
	case config.ProviderAlpaca:
		return collector.NewAlpacaFetcher(ds.AlpacaKey, ds.AlpacaSecret)
	case config.ProviderREST:
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, a.cfg.Proxy, a.cfg.Scan.Timeout)
	case config.ProviderMock:
		return &collector.MockFetcher{Price: 100, Count: 400, Drift: 0.002}
	default:
		return collector.NewYahooFetcher(a.cfg.Proxy, a.cfg.Scan.Timeout)
	}
}

// fetcher wraps the provider in the breaker/retry guard and the bar cache.
func (a *app) fetcher() collector.Fetcher {
	p := a.provider()
	a.log.Info("data source", zap.String("provider", p.Name()))
	guard := collector.NewGuard(p, collector.GuardConfig{
		Retries:        a.cfg.Scan.Retries,
		InitialBackoff: collector.DefaultGuardConfig.InitialBackoff,
		MaxBackoff:     collector.DefaultGuardConfig.MaxBackoff,
		MaxRequests:    collector.DefaultGuardConfig.MaxRequests,
		Interval:       a.cfg.Breaker.Interval,
		Timeout:        a.cfg.Breaker.Timeout,
		MinRequests:    a.cfg.Breaker.MinRequests,
	}, a.metrics, a.log)
	return collector.NewCache(guard, a.cfg.Cache.TTL)
}

func (a *app) chain() (*tickers.Chain, error) {
	fallback, err := tickers.LoadFallback(a.cfg.Tickers.FallbackFile)
	if err != nil {
		return nil, err
	}
	registry := tickers.NewRegistryScraper(a.cfg.Tickers.RegistryURL, a.cfg.Proxy, a.cfg.Scan.Timeout)
	return tickers.NewChain(registry, fallback, a.cfg.Tickers.MinScrapeRows, a.log), nil
}

// recorder opens the SQLite history, or a no-op recorder when disabled or
// the database cannot be opened.
func (a *app) recorder(disabled bool) recorder.Recorder {
	path := a.cfg.Database.SQLitePath
	if disabled || path == "" {
		return recorder.NewNoopRecorder()
	}
	r, err := recorder.NewSQLiteRecorder(path, a.log)
	if err != nil {
		a.log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return r
}

func (a *app) scanner(source scanner.TickerSource, rec recorder.Recorder) *scanner.Scanner {
	rules := a.cfg.Scoring
	return scanner.New(source, a.fetcher(), rec, a.metrics, scanner.Options{
		Range:       a.cfg.DataSource.Range,
		BatchSize:   a.cfg.Scan.BatchSize,
		Concurrency: a.cfg.Scan.Concurrency,
		Pause:       a.cfg.Scan.Pause,
		Analysis: analyzer.Options{
			MinHistory:  a.cfg.Scan.MinHistory,
			Lookback:    a.cfg.Scan.Lookback,
			SlopeWindow: a.cfg.Indicators.SlopeWindow,
			KDPeriod:    a.cfg.Indicators.KDPeriod,
			EMAAdjust:   a.cfg.Indicators.EMAAdjust,
			Rules:       &rules,
			Logger:      a.log,
		},
		Progress: func(done, total int) {
			a.log.Info("fetch progress", zap.Int("done", done), zap.Int("total", total))
		},
	}, a.log)
}

// request builds a scan request, falling back to the configured default
// codes when codes mode gets no input.
func (a *app) request(mode, input string, industries []string) (tickers.Request, error) {
	m, err := tickers.ParseMode(mode)
	if err != nil {
		return tickers.Request{}, err
	}
	if m == tickers.ModeCodes && len(tickers.ParseCodes(input)) == 0 {
		input = joinCodes(a.cfg.Tickers.DefaultCodes)
	}
	return tickers.Request{Mode: m, Input: input, Industries: industries}, nil
}
