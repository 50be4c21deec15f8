package logging

import (
	"context"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		infoOn  bool
		debugOn bool
	}{
		{level: "debug", infoOn: true, debugOn: true},
		{level: "info", infoOn: true, debugOn: false},
		{level: "error", infoOn: false, debugOn: false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := NewLogger(tt.level, false)
			if err != nil {
				t.Fatalf("NewLogger(%q): %v", tt.level, err)
			}
			if got := logger.Enabled(); got != tt.infoOn {
				t.Errorf("info enabled = %v, want %v", got, tt.infoOn)
			}
			if got := logger.V(DEBUG).Enabled(); got != tt.debugOn {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugOn)
			}
		})
	}
}

func TestNewLoggerDev(t *testing.T) {
	logger, err := NewLogger("debug", true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !logger.V(DEBUG).Enabled() {
		t.Error("development logger should emit debug messages")
	}
}

func TestNewLoggerUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud", false); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := IntoContext(context.Background(), NewTestLogger())
	if !FromContext(ctx).Enabled() {
		t.Error("logger from context should be enabled")
	}
	if FromContext(context.Background()).Enabled() {
		t.Error("missing logger should discard")
	}
}
