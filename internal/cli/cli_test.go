package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"TickerScope/internal/export"
	"TickerScope/internal/model"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestScanCommand_MockProvider(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "scans.db")
	cfgPath := writeConfig(t, dir, `
data_source:
  provider: mock
database:
  sqlite_path: `+db+`
log:
  level: error
`)
	out := filepath.Join(dir, "out")

	stdout, err := execute(t, "scan", "2330", "2317、2454", "--config", cfgPath, "--out", out, "--chart", "2330", "--detail", "3")
	if err != nil {
		t.Fatalf("scan failed: %v\n%s", err, stdout)
	}
	for _, want := range []string{"2330.TW", "2317.TW", "2454.TW", "Scored 3 of 3"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
	for _, name := range []string{export.DataFileName, export.PromptFileName, "2330.TW.html"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	stdout, err = execute(t, "runs", "--config", cfgPath)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(stdout, "codes") {
		t.Errorf("expected the recorded scan in runs output:\n%s", stdout)
	}

	stdout, err = execute(t, "runs", "--config", cfgPath, "--symbol", "2330.tw")
	if err != nil {
		t.Fatalf("runs --symbol failed: %v", err)
	}
	if !strings.Contains(stdout, "2330.TW scores") {
		t.Errorf("unexpected symbol history output:\n%s", stdout)
	}
}

func TestScanCommand_ChartTargetMissing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "data_source:\n  provider: mock\nlog:\n  level: error\n")
	if _, err := execute(t, "scan", "2330", "--config", cfgPath, "--chart", "1101"); err == nil {
		t.Error("expected error for a chart symbol outside the results")
	}
}

func TestScanCommand_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "data_source:\n  provider: mock\nlog:\n  level: error\n")
	if _, err := execute(t, "scan", "--config", cfgPath, "--mode", "everything"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestTickersCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "log:\n  level: error\n")

	stdout, err := execute(t, "tickers", "2330,2317", "2330", "--config", cfgPath)
	if err != nil {
		t.Fatalf("tickers failed: %v", err)
	}
	if !strings.Contains(stdout, "2 codes from input") || !strings.Contains(stdout, "2330 2317") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	stdout, err = execute(t, "tickers", "--industries", "--config", cfgPath)
	if err != nil {
		t.Fatalf("tickers --industries failed: %v", err)
	}
	if !strings.Contains(stdout, "半導體業") {
		t.Errorf("expected the embedded industries:\n%s", stdout)
	}
}

func TestRunsCommand_NoDatabase(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "log:\n  level: error\n")
	if _, err := execute(t, "runs", "--config", cfgPath); err == nil {
		t.Error("expected error without a database path")
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	if err != nil || !strings.Contains(stdout, "TickerScope test") {
		t.Errorf("unexpected version output %q (%v)", stdout, err)
	}
}

func TestFindResult(t *testing.T) {
	results := []*model.AnalysisResult{{ID: "2330.TW"}, {ID: "8069.TWO"}}
	tests := []struct {
		in   string
		want string
	}{
		{"2330", "2330.TW"},
		{"8069.two", "8069.TWO"},
		{" 8069 ", "8069.TWO"},
		{"8069.TW", ""},
		{"1101", ""},
	}
	for _, tt := range tests {
		got := findResult(results, tt.in)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("%q: expected no match, got %s", tt.in, got.ID)
		case tt.want != "" && (got == nil || got.ID != tt.want):
			t.Errorf("%q: expected %s, got %v", tt.in, tt.want, got)
		}
	}
}
