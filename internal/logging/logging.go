package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the process-wide log output
type Config struct {
	Level  string    `yaml:"level"`
	Format string    `yaml:"format"`
	Writer io.Writer `yaml:"-"`
}

// Log output formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Init creates a logger from cfg and installs it as the slog default
func Init(cfg Config) *slog.Logger {
	logger := New(cfg)
	slog.SetDefault(logger)
	return logger
}

// New creates a structured logger from cfg. Unknown levels fall back to info.
func New(cfg Config) *slog.Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(writer, options))
	default:
		return slog.New(slog.NewTextHandler(writer, options))
	}
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// LevelHandler drops records below a (mutable) level before they reach next.
// It lets one component be quieter or chattier than the process default.
type LevelHandler struct {
	level slog.Leveler
	next  slog.Handler
}

// NewLevelHandler wraps next with an extra level gate
func NewLevelHandler(level slog.Leveler, next slog.Handler) *LevelHandler {
	if h, ok := next.(*LevelHandler); ok {
		next = h.next
	}
	return &LevelHandler{level: level, next: next}
}

func (h *LevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.next.Enabled(ctx, level)
}

func (h *LevelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{level: h.level, next: h.next.WithAttrs(attrs)}
}

func (h *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{level: h.level, next: h.next.WithGroup(name)}
}
