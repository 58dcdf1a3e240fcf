package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWritesPlainConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zapcore.AddSync(&buf), false, false)

	logger.Infow("Transcribing chunk", "chunk", "1/3")
	logger.Debugw("hidden at info level")
	_ = logger.Sync()

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Errorf("expected level in output, got %q", out)
	}
	if !strings.Contains(out, "Transcribing chunk") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, `"chunk": "1/3"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("color codes should be absent, got %q", out)
	}
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zapcore.AddSync(&buf), true, false)

	logger.Debugw("probe output", "duration", 12.5)
	_ = logger.Sync()

	if !strings.Contains(buf.String(), "probe output") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zapcore.AddSync(&buf), false, false).With("run_id", "abc")

	logger.Infow("Done")
	_ = logger.Sync()

	if !strings.Contains(buf.String(), `"run_id": "abc"`) {
		t.Errorf("expected run_id field, got %q", buf.String())
	}
}
