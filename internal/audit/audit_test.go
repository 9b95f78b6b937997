package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
}

func TestLog_WritesSortedDetails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "host-audit.log")
	l, err := New(Config{Enabled: true, FilePath: path})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	l.now = fixedClock

	l.Log(ActionApply, map[string]interface{}{"ids": "0, 1", "count": 2})
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "2026-03-01 12:30:00 [APPLY] count=2 ids=\"0, 1\"\n"
	if string(data) != want {
		t.Fatalf("log = %q, want %q", data, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLog_DisabledAndNil(t *testing.T) {
	l, err := New(Config{Enabled: false, FilePath: filepath.Join(t.TempDir(), "x.log")})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	l.Log(ActionClear, nil)
	if _, err := os.Stat(l.config.FilePath); !os.IsNotExist(err) {
		t.Fatalf("disabled logger created a file: %v", err)
	}

	var nilLogger *Logger
	nilLogger.Log(ActionClear, nil)
	if err := nilLogger.Close(); err != nil {
		t.Fatalf("nil Close() error: %v", err)
	}
}

func TestLog_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host-audit.log")
	l, err := New(Config{Enabled: true, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	// Pretend the file is already full.
	l.currentSize = 1024 * 1024
	l.Log(ActionDelete, map[string]interface{}{"ids": "3"})

	rotated, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}
	if len(rotated) != 0 {
		t.Fatalf("rotated file should hold the old (empty) content, got %q", rotated)
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(current), "[DELETE] ids=\"3\"") {
		t.Fatalf("current log missing entry: %q", current)
	}
}
