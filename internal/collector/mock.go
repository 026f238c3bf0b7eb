package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TickerScope/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols listed in Bars or Errors get those answers; any other symbol gets
// Count generated bars around Price, or ErrNoData when Count is zero.
type MockFetcher struct {
	Price  float64
	Count  int
	Drift  float64
	Bars   map[string][]model.Bar
	Errors map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol, _ string) ([]model.Bar, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) == 0 {
			return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
		}
		return bars, nil
	}
	if m.Count == 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
	}
	return GenerateBars(m.Price, m.Count, m.Drift), nil
}

// Calls returns how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// GenerateBars builds count daily bars ending today. Each close moves by
// drift (a fraction, e.g. 0.003) from the previous one.
func GenerateBars(basePrice float64, count int, drift float64) []model.Bar {
	bars := make([]model.Bar, count)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	p := basePrice
	for i := 0; i < count; i++ {
		if i > 0 {
			p *= 1 + drift
		}
		bars[i] = model.Bar{
			Time:   today.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
