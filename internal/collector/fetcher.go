package collector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"TickerScope/internal/model"
)

// DefaultRange is the history window requested for every symbol.
const DefaultRange = "2y"

var (
	// ErrNoData means the provider answered but has no bars for the symbol.
	ErrNoData = errors.New("no data returned")
	// ErrProvider wraps transport failures and provider-side errors.
	ErrProvider = errors.New("provider error")
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol, rng string) ([]model.Bar, error)
	Name() string
}

// RangeStart converts a range such as "2y", "6mo" or "5d" into the first day
// it covers, counted back from now.
func RangeStart(rng string, now time.Time) (time.Time, error) {
	rng = strings.TrimSpace(strings.ToLower(rng))
	for _, unit := range []string{"mo", "y", "d"} {
		if !strings.HasSuffix(rng, unit) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rng, unit))
		if err != nil || n <= 0 {
			break
		}
		switch unit {
		case "y":
			return now.AddDate(-n, 0, 0), nil
		case "mo":
			return now.AddDate(0, -n, 0), nil
		default:
			return now.AddDate(0, 0, -n), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported range %q", rng)
}

// HasExchangeSuffix reports whether the symbol already names its exchange.
func HasExchangeSuffix(symbol string) bool {
	return strings.Contains(symbol, ".")
}
