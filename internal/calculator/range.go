package calculator

import (
	"errors"
	"math"

	talib "github.com/markcheno/go-talib"

	"TickerScope/internal/model"
)

// Range scans the bars and returns the highest high and the lowest low.
func Range(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// RollingMax returns the trailing n-period maximum, NaN during warm-up.
func RollingMax(values []float64, n int) []float64 {
	return rolling(values, n, talib.Max)
}

// RollingMin returns the trailing n-period minimum, NaN during warm-up.
func RollingMin(values []float64, n int) []float64 {
	return rolling(values, n, talib.Min)
}

func rolling(values []float64, n int, fn func([]float64, int) []float64) []float64 {
	out := nanSeries(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	if n == 1 {
		copy(out, values)
		return out
	}
	r := fn(values, n)
	for i := n - 1; i < len(values) && i < len(r); i++ {
		out[i] = r[i]
	}
	return out
}
