package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		configLevel string
		quiet       bool
		verbose     bool
		want        slog.Level
	}{
		{"default info", "", false, false, slog.LevelInfo},
		{"config debug", "debug", false, false, slog.LevelDebug},
		{"config warn", "warn", false, false, slog.LevelWarn},
		{"verbose overrides config", "error", false, true, slog.LevelDebug},
		{"quiet overrides verbose", "debug", true, true, slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := newLogger(&bytes.Buffer{}, tt.configLevel, tt.quiet, tt.verbose)
			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("level %v not enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-4) {
				t.Errorf("level below %v unexpectedly enabled", tt.want)
			}
		})
	}
}

func TestDefaultEnv(t *testing.T) {
	env := DefaultEnv()
	if env.Now == nil || env.Stdout == nil || env.Stderr == nil || env.Logger == nil {
		t.Errorf("DefaultEnv() has nil fields: %+v", env)
	}
}
