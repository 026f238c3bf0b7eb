package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"TickerScope/internal/model"
)

// GuardConfig holds the retry and circuit breaker settings for one provider.
type GuardConfig struct {
	Retries        int           // extra attempts after the first; 0 disables retry
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRequests    uint32        // max requests allowed in half-open state
	Interval       time.Duration // cyclic period of the closed state to clear counts
	Timeout        time.Duration // period of the open state before transitioning to half-open
	MinRequests    uint32        // requests seen before the failure ratio can trip
}

// DefaultGuardConfig never retries and trips after half of 20+ calls fail.
var DefaultGuardConfig = GuardConfig{
	Retries:        0,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	MaxRequests:    5,
	Interval:       time.Minute,
	Timeout:        30 * time.Second,
	MinRequests:    20,
}

// Observer receives fetch outcomes and breaker transitions.
type Observer interface {
	ObserveFetch(provider string, elapsed time.Duration, err error)
	ObserveBreaker(provider string, state gobreaker.State)
}

// Guard wraps a Fetcher with a circuit breaker and bounded retry.
type Guard struct {
	inner    Fetcher
	cfg      GuardConfig
	cb       *gobreaker.CircuitBreaker[[]model.Bar]
	observer Observer
	log      *zap.Logger
}

// NewGuard protects inner. observer may be nil.
func NewGuard(inner Fetcher, cfg GuardConfig, observer Observer, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{inner: inner, cfg: cfg, observer: observer, log: logger}
	minReq := cfg.MinRequests
	if minReq == 0 {
		minReq = DefaultGuardConfig.MinRequests
	}
	g.cb = gobreaker.NewCircuitBreaker[[]model.Bar](gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minReq && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
			if observer != nil {
				observer.ObserveBreaker(name, to)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
	return g
}

func (g *Guard) Name() string { return g.inner.Name() }

// State reports the breaker state.
func (g *Guard) State() gobreaker.State { return g.cb.State() }

func (g *Guard) FetchDailyBars(ctx context.Context, symbol, rng string) ([]model.Bar, error) {
	backoff := g.cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= g.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if g.cfg.MaxBackoff > 0 && backoff > g.cfg.MaxBackoff {
				backoff = g.cfg.MaxBackoff
			}
		}

		start := time.Now()
		bars, err := g.cb.Execute(func() ([]model.Bar, error) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return g.inner.FetchDailyBars(ctx, symbol, rng)
		})
		if g.observer != nil {
			g.observer.ObserveFetch(g.inner.Name(), time.Since(start), err)
		}
		if err == nil {
			return bars, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s unavailable: %v", ErrProvider, g.inner.Name(), err)
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt < g.cfg.Retries {
			g.log.Debug("fetch failed, retrying",
				zap.String("symbol", symbol), zap.Int("attempt", attempt+1), zap.Error(err))
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	return !errors.Is(err, ErrNoData) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
