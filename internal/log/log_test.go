package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facemesh.log")
	InitWithOptions(Options{Level: "debug", File: path})
	defer Init("info")

	Info("camera opened", "device", "0")
	Debug("frame", "n", 1)
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"camera opened"`) || !strings.Contains(out, `"device":"0"`) {
		t.Errorf("log file missing structured entry: %s", out)
	}
	if !strings.Contains(out, `"msg":"frame"`) {
		t.Error("debug entry should be written at debug level")
	}
}

func TestLDefaultsToInfo(t *testing.T) {
	mu.Lock()
	logger = nil
	mu.Unlock()

	if L() == nil {
		t.Fatal("L() should lazily initialize")
	}
	if With("k", "v") == nil {
		t.Error("With() returned nil")
	}
}

func TestValueOr(t *testing.T) {
	if valueOr(0, 50) != 50 || valueOr(10, 50) != 10 {
		t.Error("valueOr should fall back only for non-positive values")
	}
}
