package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level  string
		format string
		want   zapcore.Level
	}{
		{"", "", zapcore.InfoLevel},
		{"debug", FormatConsole, zapcore.DebugLevel},
		{"WARN", FormatJSON, zapcore.WarnLevel},
		{"error", "JSON", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.level, tt.format)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.level, tt.format, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Errorf("New(%q, %q): level %v should be enabled", tt.level, tt.format, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Errorf("New(%q, %q): level %v should be disabled", tt.level, tt.format, tt.want-1)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("loud", ""); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
