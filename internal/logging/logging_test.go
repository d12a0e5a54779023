package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json", Writer: &buf})
	logger.Debug("hello", "key", "value")

	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestLevelHandler_FiltersAndFollowsLevelVar(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	var level slog.LevelVar
	level.Set(slog.LevelWarn)
	logger := slog.New(NewLevelHandler(&level, base)).With("component", "test")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record passed a warn gate: %q", buf.String())
	}

	level.Set(slog.LevelDebug)
	logger.Debug("kept")
	if !strings.Contains(buf.String(), "kept") || !strings.Contains(buf.String(), "component=test") {
		t.Errorf("debug record missing after lowering level: %q", buf.String())
	}
}
