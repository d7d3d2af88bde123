package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg   Config
		level zapcore.Level
	}{
		{DefaultConfig(), zapcore.InfoLevel},
		{Config{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{Config{Level: "WARN"}, zapcore.WarnLevel},
		{Config{}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", tt.cfg, err)
		}
		if !logger.Core().Enabled(tt.level) {
			t.Errorf("New(%+v): level %s not enabled", tt.cfg, tt.level)
		}
		if tt.level > zapcore.DebugLevel && logger.Core().Enabled(tt.level-1) {
			t.Errorf("New(%+v): level below %s enabled", tt.cfg, tt.level)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{Level: "loud"}).Validate(); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := (Config{Format: "xml"}).Validate(); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
