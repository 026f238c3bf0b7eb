package calculator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// SMA computes the simple moving average series of values over period.
// The output is aligned to the input; the first period-1 entries are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	if period == 1 {
		copy(out, values)
		return out
	}
	ma := talib.Sma(values, period)
	for i := period - 1; i < len(values) && i < len(ma); i++ {
		out[i] = ma[i]
	}
	return out
}

// LatestSMA returns the simple moving average of the last period values.
func LatestSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("sma period %d: %w", period, ErrInvalidInput)
	}
	if len(values) < period {
		return 0, fmt.Errorf("sma(%d) over %d values: %w", period, len(values), ErrInsufficientHistory)
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// Last returns the final element of a series, NaN when empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
