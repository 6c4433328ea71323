package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"default info", "", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, "text")
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestNewFormats(t *testing.T) {
	// Unknown formats fall back to text; both constructors must yield a
	// usable logger.
	for _, format := range []string{"json", "text", "yaml"} {
		logger := New("info", format)
		if logger.Logger == nil {
			t.Fatalf("New(info, %q) returned Logger with nil slog.Logger", format)
		}
		logger.Info("test message", "format", format)
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()

	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level (info is higher)")
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	base := Default()
	child := base.With("cycle", 7)

	if child == base {
		t.Fatal("With() should return a new Logger")
	}
	if child.Logger == nil {
		t.Fatal("With() returned Logger with nil slog.Logger")
	}
	child.Info("test message")
}
