// Package chart renders a symbol's candlestick, volume and MACD panels as a
// standalone HTML page.
package chart

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"TickerScope/internal/model"
)

// PlotlyURL is the script the page loads.
const PlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// Panel heights as fractions of the figure, top to bottom.
var RowHeights = [3]float64{0.6, 0.2, 0.2}

const (
	verticalSpacing = 0.03
	figureHeight    = 800
)

//go:embed chart.html.tmpl
var pageSource string

var page = template.Must(template.New("chart").Parse(pageSource))

type figure struct {
	Title        string
	PlotlyURL    string
	Height       int
	Domains      [3][2]float64
	Dates        []string
	Open         []float64
	High         []float64
	Low          []float64
	Close        []float64
	MA5          []any
	MA10         []any
	MA20         []any
	MA60         []any
	Volume       []float64
	VolumeColors []string
	Hist         []any
}

// VolumeColor is red when the bar opened at or above its close, else green.
func VolumeColor(b model.Bar) string {
	if b.Open-b.Close >= 0 {
		return "red"
	}
	return "green"
}

// Render writes the chart page for res.
func Render(w io.Writer, res *model.AnalysisResult) error {
	if res == nil || len(res.Chart) == 0 {
		return fmt.Errorf("no chart data")
	}
	if err := page.Execute(w, build(res)); err != nil {
		return fmt.Errorf("render chart %s: %w", res.ID, err)
	}
	return nil
}

// WriteFile renders the chart into dir as <symbol>.html and returns the path.
func WriteFile(dir string, res *model.AnalysisResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(dir, FileName(res.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	if err := Render(f, res); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// FileName is the chart file name for a symbol.
func FileName(symbol string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(symbol) + ".html"
}

func build(res *model.AnalysisResult) figure {
	n := len(res.Chart)
	f := figure{
		Title:        fmt.Sprintf("%s price and volume trend (score %d, %s)", res.ID, res.Score, res.Trend),
		PlotlyURL:    PlotlyURL,
		Height:       figureHeight,
		Domains:      domains(),
		Dates:        make([]string, n),
		Open:         make([]float64, n),
		High:         make([]float64, n),
		Low:          make([]float64, n),
		Close:        make([]float64, n),
		MA5:          make([]any, n),
		MA10:         make([]any, n),
		MA20:         make([]any, n),
		MA60:         make([]any, n),
		Volume:       make([]float64, n),
		VolumeColors: make([]string, n),
		Hist:         make([]any, n),
	}
	for i, r := range res.Chart {
		f.Dates[i] = r.Time.Format("2006-01-02")
		f.Open[i], f.High[i], f.Low[i], f.Close[i] = r.Open, r.High, r.Low, r.Close
		f.MA5[i] = value(r.MA5)
		f.MA10[i] = value(r.MA10)
		f.MA20[i] = value(r.MA20)
		f.MA60[i] = value(r.MA60)
		f.Volume[i] = r.Volume
		f.VolumeColors[i] = VolumeColor(r.Bar)
		f.Hist[i] = value(r.MACDHist)
	}
	return f
}

// domains splits the vertical axis by RowHeights, leaving verticalSpacing
// between panels.
func domains() [3][2]float64 {
	usable := 1 - 2*verticalSpacing
	var d [3][2]float64
	top := 1.0
	for i, h := range RowHeights {
		bottom := top - h*usable
		if i == len(RowHeights)-1 {
			bottom = 0
		}
		d[i] = [2]float64{round3(bottom), round3(top)}
		top = bottom - verticalSpacing
	}
	return d
}

// value maps NaN warm-up points to JSON null so plotly leaves gaps.
func value(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
