// Package analyzer turns one symbol's daily bars into a scored AnalysisResult.
package analyzer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"TickerScope/internal/calculator"
	"TickerScope/internal/model"
	"TickerScope/internal/strategy"
)

// Defaults for a single analysis.
const (
	DefaultMinHistory = 200
	DefaultLookback   = 300
)

// ErrInsufficientHistory is returned for symbols with fewer bars than MinHistory.
var ErrInsufficientHistory = errors.New("not enough trading days to score")

// Options configures Analyze. Zero fields take the defaults.
type Options struct {
	MinHistory  int
	Lookback    int
	SlopeWindow int
	KDPeriod    int
	EMAAdjust   bool
	Rules       *strategy.Rules
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MinHistory <= 0 {
		o.MinHistory = DefaultMinHistory
	}
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.SlopeWindow <= 0 {
		o.SlopeWindow = calculator.DefaultSlopeWindow
	}
	if o.KDPeriod <= 0 {
		o.KDPeriod = calculator.DefaultKDPeriod
	}
	if o.Rules == nil {
		r := strategy.DefaultRules()
		o.Rules = &r
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Indicators computes the full indicator series for chronologically sorted bars.
func Indicators(bars []model.Bar, kdPeriod int, emaAdjust bool) (*model.IndicatorSeries, error) {
	closes := model.Closes(bars)
	k, d, err := calculator.KD(model.Highs(bars), model.Lows(bars), closes, kdPeriod, emaAdjust)
	if err != nil {
		return nil, fmt.Errorf("kd: %w", err)
	}
	hist, err := calculator.MACDHistogram(closes,
		calculator.DefaultMACDFast, calculator.DefaultMACDSlow, calculator.DefaultMACDSignal, emaAdjust)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	return &model.IndicatorSeries{
		MA5:      calculator.SMA(closes, 5),
		MA10:     calculator.SMA(closes, 10),
		MA20:     calculator.SMA(closes, 20),
		MA60:     calculator.SMA(closes, 60),
		K:        k,
		D:        d,
		MACDHist: hist,
	}, nil
}

// Analyze scores one symbol. Symbols with fewer than MinHistory bars are
// rejected with ErrInsufficientHistory.
func Analyze(symbol string, bars []model.Bar, opts Options) (*model.AnalysisResult, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("symbol", symbol))

	if len(bars) < opts.MinHistory {
		return nil, fmt.Errorf("%s has %d bars, need %d: %w", symbol, len(bars), opts.MinHistory, ErrInsufficientHistory)
	}

	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	ind, err := Indicators(sorted, opts.KDPeriod, opts.EMAAdjust)
	if err != nil {
		return nil, fmt.Errorf("%s indicators: %w", symbol, err)
	}

	slope := func(name string, series []float64) float64 {
		v, err := calculator.Slope(series, opts.SlopeWindow)
		if err != nil {
			log.Debug("slope unavailable, using 0", zap.String("series", name), zap.Error(err))
		}
		return v
	}
	slope5 := slope("MA5", ind.MA5)
	slope10 := slope("MA10", ind.MA10)
	slope20 := slope("MA20", ind.MA20)

	lookback := opts.Lookback
	if len(sorted) < lookback {
		lookback = len(sorted)
	}
	window := sorted[len(sorted)-lookback:]
	rows := ind.Window(sorted, lookback)

	snap := strategy.Snapshot{
		MA5:      calculator.Last(ind.MA5),
		MA10:     calculator.Last(ind.MA10),
		MA20:     calculator.Last(ind.MA20),
		Slope5:   slope5,
		Slope10:  slope10,
		Slope20:  slope20,
		MACDHist: calculator.Last(ind.MACDHist),
		K:        calculator.Last(ind.K),
		D:        calculator.Last(ind.D),
	}
	ev := strategy.Score(snap, *opts.Rules)

	price := round(window[len(window)-1].Close, 2)
	high, low, err := calculator.Range(window)
	if err != nil {
		return nil, fmt.Errorf("%s range: %w", symbol, err)
	}

	res := &model.AnalysisResult{
		ID:         symbol,
		Price:      price,
		Score:      ev.Score,
		Trend:      ev.Trend,
		SpecialTag: ev.SpecialTag,
		Technical: model.Technical{
			MA20Slope: round(slope20, 2),
			MA10Slope: round(slope10, 2),
			MACD:      macdColour(snap.MACDHist),
			KD:        kdCross(snap.K, snap.D),
		},
		Display: model.DisplayInfo{
			ID:            symbol,
			Price:         price,
			Score:         ev.Score,
			Trend:         ev.Trend,
			MA10Slope:     round(slope10, 2),
			EstimatedMove: round(strategy.EstimatedMove(slope5, slope20), 1),
		},
		History:  buildHistory(window, high, low),
		Chart:    rows,
		MACDHist: snap.MACDHist,
		K:        snap.K,
		D:        snap.D,
	}
	log.Debug("analyzed", zap.Int("score", res.Score), zap.String("trend", res.Trend), zap.Int("bars", len(sorted)))
	return res, nil
}

func buildHistory(window []model.Bar, high, low float64) model.HistoryData {
	h := model.HistoryData{
		High:    round(high, 2),
		Low:     round(low, 2),
		Dates:   make([]string, len(window)),
		Prices:  make([]float64, len(window)),
		Volumes: make([]int64, len(window)),
	}
	for i, b := range window {
		h.Dates[i] = b.Time.Format("01-02")
		h.Prices[i] = round(b.Close, 1)
		h.Volumes[i] = int64(b.Volume / 1000)
	}
	return h
}

func macdColour(hist float64) string {
	if hist > 0 {
		return "red"
	}
	return "green"
}

func kdCross(k, d float64) string {
	if k > d {
		return "golden cross"
	}
	return "death cross"
}

// round uses decimal rounding (half away from zero); NaN and Inf become 0.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
