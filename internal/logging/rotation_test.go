package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriter_RotatesPastLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	rw, err := newRotatingWriter(path, 10, 2)
	if err != nil {
		t.Fatalf("newRotatingWriter failed: %v", err)
	}
	defer rw.Close()

	for _, line := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n", "dddddddd\n"} {
		if _, err := rw.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if string(current) != "dddddddd\n" {
		t.Errorf("current file = %q, want last line only", current)
	}

	b1, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("read backup 1: %v", err)
	}
	if string(b1) != "cccccccc\n" {
		t.Errorf("backup .1 = %q, want newest rotated line", b1)
	}

	b2, err := os.ReadFile(path + ".2")
	if err != nil {
		t.Fatalf("read backup 2: %v", err)
	}
	if string(b2) != "bbbbbbbb\n" {
		t.Errorf("backup .2 = %q", b2)
	}

	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("expected only 2 backups to be kept")
	}
}

func TestRotatingWriter_NoBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	rw, err := newRotatingWriter(path, 5, 0)
	if err != nil {
		t.Fatalf("newRotatingWriter failed: %v", err)
	}
	defer rw.Close()

	_, _ = rw.Write([]byte("first\n"))
	_, _ = rw.Write([]byte("second\n"))

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("expected no backup file when MaxBackups is 0")
	}
	current, _ := os.ReadFile(path)
	if string(current) != "second\n" {
		t.Errorf("current file = %q", current)
	}
}

func TestRotatingWriter_Disabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 0, MaxBackups: 3})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	payload := strings.Repeat("x", 4096)
	for i := 0; i < 10; i++ {
		_, _ = rw.Write([]byte(payload))
	}
	if rw.CurrentSize() != int64(len(payload)*10) {
		t.Errorf("CurrentSize() = %d", rw.CurrentSize())
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := rw.Write([]byte("after close")); err == nil {
		t.Error("expected error writing to closed writer")
	}
	if rw.FilePath() != path {
		t.Errorf("FilePath() = %q", rw.FilePath())
	}
}

func TestNewLoggerWithRotation(t *testing.T) {
	if _, err := NewLoggerWithRotation("", LevelInfo, DefaultRotationConfig()); err == nil {
		t.Error("expected error for empty directory")
	}

	dir := t.TempDir()
	logger, err := NewLoggerWithRotation(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLoggerWithRotation failed: %v", err)
	}
	logger.Info("hello")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries := readLogLines(t, filepath.Join(dir, LogFileName))
	if len(entries) != 1 || entries[0]["msg"] != "hello" {
		t.Errorf("unexpected entries: %v", entries)
	}
}
