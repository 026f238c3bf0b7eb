package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"TickerScope/internal/model"
)

// AlpacaFetcher implements Fetcher using Alpaca market data. It serves US
// listings only; exchange-suffixed symbols are reported as ErrNoData.
type AlpacaFetcher struct {
	client *marketdata.Client
	now    func() time.Time
}

// NewAlpacaFetcher creates a fetcher backed by the Alpaca data API.
func NewAlpacaFetcher(apiKey, apiSecret string) *AlpacaFetcher {
	return &AlpacaFetcher{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		now: time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchDailyBars(ctx context.Context, symbol, rng string) ([]model.Bar, error) {
	if HasExchangeSuffix(symbol) {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrNoData)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := f.now()
	start, err := RangeStart(rng, end)
	if err != nil {
		return nil, err
	}

	bars, err := f.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: alpaca bars %s: %v", ErrProvider, symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrNoData)
	}

	out := make([]model.Bar, len(bars))
	for i, b := range bars {
		out[i] = model.Bar{
			Time:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	return out, nil
}
