package plog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPlogLevels(t *testing.T) {
	// --- Setup: Redirect plog output to capture log output ---
	var logBuf bytes.Buffer
	SetOutput(&logBuf)
	t.Cleanup(func() { SetOutput(os.Stderr) }) // Restore original output after test.

	t.Run("Logs all levels when level is Debug", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(slog.LevelDebug)

		Debug("debug message", "key", "val1")
		Info("info message", "key", "val2")
		Warn("warn message")

		output := logBuf.String()

		if !strings.Contains(output, "level=DEBUG msg=\"debug message\" key=val1") {
			t.Errorf("expected debug message to be logged, but it wasn't. Got: %s", output)
		}
		if !strings.Contains(output, "level=INFO msg=\"info message\" key=val2") {
			t.Errorf("expected info message to be logged, but it wasn't. Got: %s", output)
		}
		if !strings.Contains(output, "level=WARN msg=\"warn message\"") {
			t.Errorf("expected warn message to be logged, but it wasn't. Got: %s", output)
		}
	})

	t.Run("Suppresses lower levels when level is Warn", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(slog.LevelWarn)

		Debug("debug message")
		Notice("notice message")
		Info("info message")

		output := logBuf.String()

		if strings.Contains(output, "level=DEBUG") || strings.Contains(output, "level=INFO") || strings.Contains(output, "level=NOTICE") {
			t.Errorf("expected no debug, notice or info output at warn level, but got: %s", output)
		}
	})

	t.Run("Logs Notice and above, but suppresses Debug", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(LevelNotice)

		Debug("debug message")
		Notice("notice message", "key", "val1")
		Info("info message", "key", "val2")

		output := logBuf.String()

		if strings.Contains(output, "level=DEBUG msg=\"debug message\"") {
			t.Errorf("expected debug message to be suppressed at notice level, but it was logged. Got: %s", output)
		}
		if !strings.Contains(output, "level=NOTICE msg=\"notice message\" key=val1") {
			t.Errorf("expected notice message to be logged, but it wasn't. Got: %s", output)
		}
		if !strings.Contains(output, "level=INFO msg=\"info message\" key=val2") {
			t.Errorf("expected info message to be logged, but it wasn't. Got: %s", output)
		}
	})
}

func TestLevelFromString(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"notice", LevelNotice},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"  Info  ", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range testCases {
		if got := LevelFromString(tc.in); got != tc.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAttachLogFile(t *testing.T) {
	var logBuf bytes.Buffer
	SetOutput(&logBuf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	SetLevel(slog.LevelInfo)

	path := filepath.Join(t.TempDir(), "test.log")
	f, err := AttachLogFile(path)
	if err != nil {
		t.Fatalf("AttachLogFile failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })

	Info("file message", "key", "val")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("could not read log file: %v", err)
	}
	if !strings.Contains(string(content), "msg=\"file message\" key=val") {
		t.Errorf("expected the record to be duplicated into the log file, got: %s", content)
	}
}
