package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"TickerScope/internal/model"
)

// RESTFetcher implements Fetcher against a plain bars endpoint:
// GET {base}/api/v1/bars/daily?symbol=..&range=.. returning a JSON array.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	client  *resty.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &RESTFetcher{BaseURL: baseURL, APIKey: apiKey, client: client}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars endpoint.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol, rng string) ([]model.Bar, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"range":  rng,
		}).
		Get(f.BaseURL + "/api/v1/bars/daily")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: fetch bars %s: %v", ErrProvider, symbol, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("rest %s: %w", symbol, ErrNoData)
	default:
		return nil, fmt.Errorf("%w: fetch bars %s: status %d, body: %s", ErrProvider, symbol, resp.StatusCode(), resp.String())
	}

	var raw []restBar
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("%w: decode bars %s: %v", ErrProvider, symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rest %s: %w", symbol, ErrNoData)
	}
	bars := make([]model.Bar, len(raw))
	for i, rb := range raw {
		bars[i] = model.Bar{
			Time:   time.Unix(rb.Timestamp, 0),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
