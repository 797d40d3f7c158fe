package colors

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	fn()

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close pipe writer: %v", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read from pipe: %v", err)
	}
	return buf.String()
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stderr = w
	defer func() { os.Stderr = oldStderr }()

	fn()

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close pipe writer: %v", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read from pipe: %v", err)
	}
	return buf.String()
}

func TestError(t *testing.T) {
	output := captureStderr(t, func() {
		Error("something went wrong")
	})
	if !strings.Contains(output, "Error:") {
		t.Errorf("Error output missing 'Error:' prefix: %q", output)
	}
	if !strings.Contains(output, "something went wrong") {
		t.Errorf("Error output missing message: %q", output)
	}
	if !strings.Contains(output, Red) {
		t.Errorf("Error output missing red color code: %q", output)
	}
}

func TestWarning(t *testing.T) {
	output := captureStderr(t, func() {
		Warning("disk almost full")
	})
	if !strings.Contains(output, "Warning:") {
		t.Errorf("Warning output missing 'Warning:' prefix: %q", output)
	}
	if !strings.Contains(output, Yellow) {
		t.Errorf("Warning output missing yellow color code: %q", output)
	}
}

func TestSuccess(t *testing.T) {
	output := captureStdout(t, func() {
		Success("operation completed")
	})
	if !strings.Contains(output, "operation completed") {
		t.Errorf("Success output missing message: %q", output)
	}
	if !strings.Contains(output, Green) {
		t.Errorf("Success output missing green color code: %q", output)
	}
}

func TestInfo(t *testing.T) {
	output := captureStdout(t, func() {
		Info("3 alerts pending")
	})
	if !strings.Contains(output, "3 alerts pending") {
		t.Errorf("Info output missing message: %q", output)
	}
}

func TestDebugGatedByDebugMode(t *testing.T) {
	SetDebug(false)
	defer SetDebug(false)

	output := captureStderr(t, func() {
		Debug("hidden")
	})
	if output != "" {
		t.Errorf("Debug output should be empty when disabled, got %q", output)
	}

	SetDebug(true)
	output = captureStderr(t, func() {
		Debug("visible")
	})
	if !strings.Contains(output, "visible") {
		t.Errorf("Debug output missing message when enabled: %q", output)
	}
}

type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.entries = append(l.entries, "debug:"+msg) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.entries = append(l.entries, "info:"+msg) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.entries = append(l.entries, "warn:"+msg) }
func (l *recordingLogger) Error(msg string, args ...any) { l.entries = append(l.entries, "error:"+msg) }

func TestLoggerMirroring(t *testing.T) {
	logger := &recordingLogger{}
	SetLogger(logger)
	defer SetLogger(nil)

	captureStderr(t, func() {
		Error("broken")
	})
	captureStdout(t, func() {
		Success("done")
	})

	if len(logger.entries) != 2 {
		t.Fatalf("expected 2 mirrored entries, got %d: %v", len(logger.entries), logger.entries)
	}
	if logger.entries[0] != "error:broken" {
		t.Errorf("unexpected first entry: %q", logger.entries[0])
	}
	if logger.entries[1] != "info:done" {
		t.Errorf("unexpected second entry: %q", logger.entries[1])
	}
}
