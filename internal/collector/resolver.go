package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"TickerScope/internal/model"
)

// Exchange suffixes tried for bare Taiwan codes.
const (
	SuffixListed = ".TW"
	SuffixOTC    = ".TWO"
)

// minListedBars is the bar count below which a listed-suffix answer is
// treated as a miss and the OTC suffix is tried.
const minListedBars = 5

// Resolved is a fetched symbol with the exchange suffix that answered.
type Resolved struct {
	Code   string
	Symbol string
	Bars   []model.Bar
}

// Resolver turns a user-supplied code into a fetchable symbol.
type Resolver struct {
	Fetcher Fetcher
	Range   string
	Logger  *zap.Logger
}

// NewResolver creates a Resolver requesting rng of history.
func NewResolver(f Fetcher, rng string, logger *zap.Logger) *Resolver {
	if rng == "" {
		rng = DefaultRange
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Fetcher: f, Range: rng, Logger: logger}
}

// Resolve fetches code as-is when it carries an exchange suffix. A bare code
// is tried as <code>.TW first; when that yields fewer than five bars the
// <code>.TWO listing is used if it has more than five.
func (r *Resolver) Resolve(ctx context.Context, code string) (Resolved, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Resolved{}, fmt.Errorf("empty code: %w", ErrNoData)
	}
	if HasExchangeSuffix(code) {
		bars, err := r.Fetcher.FetchDailyBars(ctx, code, r.Range)
		return Resolved{Code: code, Symbol: code, Bars: bars}, err
	}

	listed := code + SuffixListed
	bars, err := r.Fetcher.FetchDailyBars(ctx, listed, r.Range)
	if err == nil && len(bars) >= minListedBars {
		return Resolved{Code: code, Symbol: listed, Bars: bars}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Resolved{}, ctxErr
	}

	otc := code + SuffixOTC
	otcBars, otcErr := r.Fetcher.FetchDailyBars(ctx, otc, r.Range)
	if otcErr == nil && len(otcBars) > minListedBars {
		r.Logger.Debug("resolved to OTC listing", zap.String("code", code), zap.Int("bars", len(otcBars)))
		return Resolved{Code: code, Symbol: otc, Bars: otcBars}, nil
	}
	if otcErr != nil && !errors.Is(otcErr, ErrNoData) {
		r.Logger.Debug("OTC attempt failed", zap.String("symbol", otc), zap.Error(otcErr))
	}

	if err != nil {
		return Resolved{Code: code, Symbol: listed}, err
	}
	if len(bars) == 0 {
		return Resolved{Code: code, Symbol: listed}, fmt.Errorf("%s: %w", code, ErrNoData)
	}
	return Resolved{Code: code, Symbol: listed, Bars: bars}, nil
}
