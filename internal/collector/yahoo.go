package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"TickerScope/internal/model"
)

// DefaultYahooURL is the Yahoo Finance chart endpoint.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL string
	client  *resty.Client
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &YahooFetcher{BaseURL: DefaultYahooURL, client: client}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol, rng string) ([]model.Bar, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    rng,
		}).
		Get(f.BaseURL + "/" + url.PathEscape(symbol))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: yahoo fetch %s: %v", ErrProvider, symbol, err)
	}
	if resp.StatusCode() != http.StatusOK && !gjson.ValidBytes(resp.Body()) {
		return nil, fmt.Errorf("%w: yahoo %s status %d", ErrProvider, symbol, resp.StatusCode())
	}
	bars, err := parseYahooChart(resp.Body(), symbol)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK && len(bars) == 0 {
		return nil, fmt.Errorf("%w: yahoo %s status %d", ErrProvider, symbol, resp.StatusCode())
	}
	return bars, nil
}

func parseYahooChart(body []byte, symbol string) ([]model.Bar, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: yahoo %s: malformed response", ErrProvider, symbol)
	}
	chart := gjson.GetBytes(body, "chart")
	if e := chart.Get("error"); e.Exists() && e.Type != gjson.Null {
		if e.Get("code").String() == "Not Found" {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
		}
		return nil, fmt.Errorf("%w: yahoo %s: %s", ErrProvider, symbol, e.Get("description").String())
	}

	result := chart.Get("result.0")
	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	loc := time.UTC
	if off := result.Get("meta.gmtoffset"); off.Exists() {
		loc = time.FixedZone(result.Get("meta.exchangeTimezoneName").String(), int(off.Int()))
	}

	quote := result.Get("indicators.quote.0")
	open := quote.Get("open").Array()
	high := quote.Get("high").Array()
	low := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volume := quote.Get("volume").Array()

	at := func(col []gjson.Result, i int) (float64, bool) {
		if i >= len(col) || col[i].Type != gjson.Number {
			return 0, false
		}
		return col[i].Float(), true
	}

	bars := make([]model.Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		c, ok := at(closes, i)
		if !ok {
			continue // holidays and halted sessions come back as nulls
		}
		o, _ := at(open, i)
		h, _ := at(high, i)
		l, _ := at(low, i)
		v, _ := at(volume, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   time.Unix(ts.Int(), 0).In(loc),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
