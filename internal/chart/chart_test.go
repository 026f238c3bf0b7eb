package chart

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"TickerScope/internal/model"
)

func result() *model.AnalysisResult {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := []model.ChartRow{
		{Bar: model.Bar{Time: start, Open: 10, High: 11, Low: 9, Close: 9.5, Volume: 1000}, MA5: math.NaN(), MACDHist: math.NaN()},
		{Bar: model.Bar{Time: start.AddDate(0, 0, 1), Open: 9.5, High: 10.5, Low: 9.4, Close: 10.2, Volume: 2000}, MA5: 9.8, MACDHist: 0.12},
		{Bar: model.Bar{Time: start.AddDate(0, 0, 2), Open: 10.2, High: 10.3, Low: 10, Close: 10.2, Volume: 1500}, MA5: 9.9, MACDHist: -0.05},
	}
	return &model.AnalysisResult{ID: "2330.TW", Score: 110, Trend: model.TrendRanging, Chart: rows}
}

func TestVolumeColor(t *testing.T) {
	tests := []struct {
		open, close float64
		want        string
	}{
		{10, 9, "red"},
		{10, 10, "red"},
		{9, 10, "green"},
	}
	for _, tt := range tests {
		if got := VolumeColor(model.Bar{Open: tt.open, Close: tt.close}); got != tt.want {
			t.Errorf("open=%v close=%v: expected %s, got %s", tt.open, tt.close, tt.want, got)
		}
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, result()); err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	for _, want := range []string{
		PlotlyURL,
		`"candlestick"`,
		`["2025-01-02","2025-01-03","2025-01-04"]`,
		`["red","green","red"]`,
		`[null,9.8,9.9]`,
		`[null,0.12,-0.05]`,
		`"MA60"`,
		"2330.TW price and volume trend",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %s in page", want)
		}
	}
	if strings.Contains(html, "NaN") {
		t.Error("NaN must not reach the page")
	}
}

func TestRender_NoData(t *testing.T) {
	if err := Render(&bytes.Buffer{}, &model.AnalysisResult{ID: "X"}); err == nil {
		t.Error("expected error without chart rows")
	}
}

func TestDomains(t *testing.T) {
	d := domains()
	if d[0][1] != 1 || d[2][0] != 0 {
		t.Errorf("panels should span the figure: %v", d)
	}
	for i := 0; i < 2; i++ {
		if gap := d[i][0] - d[i+1][1]; math.Abs(gap-verticalSpacing) > 1e-3 {
			t.Errorf("expected spacing between panel %d and %d, got %v", i, i+1, gap)
		}
	}
	price := d[0][1] - d[0][0]
	volume := d[1][1] - d[1][0]
	if math.Abs(price/volume-3) > 0.05 {
		t.Errorf("price panel should be three times the volume panel: %v", d)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, result())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "2330.TW.html" {
		t.Errorf("unexpected file name %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || !bytes.Contains(b, []byte("Plotly.newPlot")) {
		t.Errorf("chart file incomplete: %v", err)
	}
}
