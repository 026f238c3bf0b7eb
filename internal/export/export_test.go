package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"TickerScope/internal/model"
)

func sample() []*model.AnalysisResult {
	return []*model.AnalysisResult{{
		ID:         "2330.TW",
		Price:      1050.5,
		Score:      130,
		Trend:      model.TrendStrong,
		SpecialTag: model.TrendStrong,
		Technical:  model.Technical{MA20Slope: 0.42, MA10Slope: 0.8, MACD: "red", KD: "golden cross"},
		History: model.HistoryData{
			High: 1100, Low: 500,
			Dates:   []string{"03-03", "03-04"},
			Prices:  []float64{1040.5, 1050.5},
			Volumes: []int64{25000, 31000},
		},
		Display: model.DisplayInfo{ID: "2330.TW", EstimatedMove: 8.1},
		Chart:   []model.ChartRow{{}},
	}}
}

func TestMarshalDocument(t *testing.T) {
	now := time.Date(2025, 3, 4, 13, 30, 59, 0, time.Local)
	data, err := MarshalDocument(BuildDocument(sample(), now, "Logic<&>台股"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"Timestamp": "2025-03-04 13:30"`, `"Logic": "Logic<&>台股"`, `"Trend_Desc": "Strong Uptrend"`, `"High_300D": 1100`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in output:\n%s", want, s)
		}
	}
	for _, banned := range []string{"Display", "Estimated_Pct", "Chart", `\u003c`} {
		if strings.Contains(s, banned) {
			t.Errorf("unexpected %q in output", banned)
		}
	}

	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	stock := back["Stock_Data"].([]any)[0].(map[string]any)
	if len(stock) != 7 {
		t.Errorf("expected 7 exported fields, got %v", stock)
	}
}

func TestBuildDocument_EmptyIsArray(t *testing.T) {
	data, err := MarshalDocument(BuildDocument(nil, time.Now(), DefaultLogic))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"Stock_Data": []`) {
		t.Errorf("empty results should export as [], got %s", data)
	}
}

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt(PromptData{JSON: `{"a":1}`, Logic: "L", Count: 3, Lookback: 300}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `{"a":1}`) || !strings.Contains(out, "300-day") || !strings.Contains(out, "MA10") {
		t.Errorf("default prompt missing content:\n%s", out)
	}

	custom, err := RenderPrompt(PromptData{JSON: "<x>"}, "data={{.JSON}}")
	if err != nil || custom != "data=<x>" {
		t.Errorf("custom template should not escape, got %q (%v)", custom, err)
	}
	if _, err := RenderPrompt(PromptData{}, "{{.Missing}}"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e, err := New("", "")
	if err != nil {
		t.Fatal(err)
	}
	e.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC) }

	a, err := e.WriteArtifacts(dir, &model.Report{RunID: "abc", Results: sample()})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(a.DataPath) != DataFileName || filepath.Base(a.PromptPath) != PromptFileName {
		t.Errorf("unexpected artifact paths %+v", a)
	}
	data, err := os.ReadFile(a.DataPath)
	if err != nil {
		t.Fatal(err)
	}
	prompt, err := os.ReadFile(a.PromptPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"Run_ID": "abc"`) {
		t.Errorf("run id missing from data pack")
	}
	if !strings.Contains(string(prompt), string(data)) {
		t.Error("prompt should embed the data pack verbatim")
	}
	if !strings.Contains(string(prompt), "2-day") {
		t.Errorf("lookback should come from the history length:\n%s", prompt)
	}
}

func TestNew_TemplateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.tmpl")
	if err := os.WriteFile(path, []byte("custom {{.Count}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := New("X", path)
	if err != nil {
		t.Fatal(err)
	}
	_, prompt, err := e.Render(&model.Report{Results: sample()})
	if err != nil || prompt != "custom 1" {
		t.Errorf("expected custom prompt, got %q (%v)", prompt, err)
	}
	if _, err := New("X", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing template")
	}
}
