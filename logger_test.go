package callapi

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureLogger() (*SimpleLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &SimpleLogger{out: log.New(&buf, "", 0)}, &buf
}

func TestSimpleLoggerLevels(t *testing.T) {
	logger, buf := captureLogger()

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	for _, want := range []string{
		"DEBUG debug message",
		"INFO info message",
		"WARN warn message",
		"ERROR error message",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestSimpleLoggerKeyValuePairs(t *testing.T) {
	logger, buf := captureLogger()

	logger.Debug("request starting", "requestId", "req-1", "method", "GET")

	out := buf.String()
	if !strings.Contains(out, "requestId=req-1") {
		t.Errorf("Expected requestId pair, got %q", out)
	}
	if !strings.Contains(out, "method=GET") {
		t.Errorf("Expected method pair, got %q", out)
	}
}

func TestSimpleLoggerOddArguments(t *testing.T) {
	logger, buf := captureLogger()

	logger.Info("dangling key", "orphan")

	if !strings.Contains(buf.String(), "orphan=<missing>") {
		t.Errorf("Expected dangling key marked, got %q", buf.String())
	}
}

func TestNewSimpleLoggerDoesNotPanic(t *testing.T) {
	logger := NewSimpleLogger()
	logger.Info("writes to standard error")
}
