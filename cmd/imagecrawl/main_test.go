package main

import (
	"context"
	"log/slog"
	"testing"
)

func TestLogLevelName(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		env        string
		configured string
		want       string
	}{
		{"default", "", "", "", "info"},
		{"config file", "", "", "warn", "warn"},
		{"env over config", "", "debug", "warn", "debug"},
		{"flag over env", "error", "debug", "warn", "error"},
		{"env before config is loaded", "", "debug", "", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IMAGECRAWL_LOG_LEVEL", tt.env)
			if got := logLevelName(tt.flag, tt.configured); got != tt.want {
				t.Errorf("logLevelName(%q, %q) = %q, want %q", tt.flag, tt.configured, got, tt.want)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	if err := setLogLevel("debug"); err != nil {
		t.Fatalf("setLogLevel: %v", err)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug logging should be enabled")
	}

	if err := setLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
