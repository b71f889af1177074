package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManagerWritesFileAndChannel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "benchup.log")

	m, err := NewManager(Config{
		FilePath:       logPath,
		Level:          "debug",
		ChannelBufSize: 10,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.For("provider").Info("instance launched", "instance_id", "i-0abc")
	_ = m.Sync()

	select {
	case entry := <-m.Entries():
		if entry.Scope != "provider" {
			t.Errorf("Scope: got %q, want provider", entry.Scope)
		}
		if entry.Message != "instance launched" {
			t.Errorf("Message: got %q", entry.Message)
		}
		if entry.Level != "INFO" {
			t.Errorf("Level: got %q", entry.Level)
		}
		if entry.Fields["instance_id"] != "i-0abc" {
			t.Errorf("Fields: got %v", entry.Fields)
		}
	case <-time.After(time.Second):
		t.Fatal("no entry on channel")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "instance launched") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestManagerRequiresFilePath(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("expected error for empty FilePath")
	}
}

func TestForCachesLoggers(t *testing.T) {
	m := NewTestManager(10)
	defer m.Close()

	a := m.For("sync")
	b := m.For("sync")
	if a != b {
		t.Error("For should return the cached logger for a scope")
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "benchup.log")
	m, err := NewManager(Config{FilePath: logPath, Level: "warn", ChannelBufSize: 10})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.For("app").Info("filtered out")
	m.For("app").Warn("kept")
	_ = m.Sync()

	select {
	case entry := <-m.Entries():
		if entry.Message != "kept" {
			t.Errorf("expected only the warn entry, got %q", entry.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("no entry on channel")
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NopLogger()
	l.Debug("a")
	l.Info("b", "k", "v")
	l.Warn("c")
	l.Error("d")
	if got := l.With("k", "v"); got != l {
		t.Error("With on nop logger should return itself")
	}
}

func TestDropForgetsScopes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "benchup.log")
	m, err := NewManager(Config{FilePath: logPath, ChannelBufSize: 10})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	first := m.For("provision.api-server")
	m.Drop("provision.")
	second := m.For("provision.api-server")
	if first == second {
		t.Error("Drop should evict cached loggers under the prefix")
	}
}
