package logging

import (
	"testing"
	"time"
)

func TestChannelSinkParsesZapLine(t *testing.T) {
	s := NewChannelSink(4)
	line := []byte(`{"level":"warn","ts":1700000000.5,"logger":"sync","msg":"rsync retry","attempt":2}`)

	if _, err := s.Write(line); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entry := <-s.Entries()
	if entry.Level != "WARN" {
		t.Errorf("Level: got %q", entry.Level)
	}
	if entry.Scope != "sync" {
		t.Errorf("Scope: got %q", entry.Scope)
	}
	if entry.Message != "rsync retry" {
		t.Errorf("Message: got %q", entry.Message)
	}
	if entry.Fields["attempt"] != float64(2) {
		t.Errorf("Fields: got %v", entry.Fields)
	}
	if entry.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp: got %v", entry.Timestamp)
	}
}

func TestChannelSinkDropsOldestWhenFull(t *testing.T) {
	s := NewChannelSink(1)

	_, _ = s.Write([]byte(`{"msg":"first"}`))
	_, _ = s.Write([]byte(`{"msg":"second"}`))

	entry := <-s.Entries()
	if entry.Message != "second" {
		t.Errorf("expected oldest dropped, got %q", entry.Message)
	}
}

func TestChannelSinkIgnoresGarbage(t *testing.T) {
	s := NewChannelSink(1)
	n, err := s.Write([]byte("not json"))
	if err != nil {
		t.Fatalf("garbage write should not error: %v", err)
	}
	if n != len("not json") {
		t.Errorf("Write should report full length, got %d", n)
	}
	select {
	case e := <-s.Entries():
		t.Errorf("unexpected entry %v", e)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestChannelSinkWriteAfterClose(t *testing.T) {
	s := NewChannelSink(1)
	_ = s.Close()
	_ = s.Close() // idempotent
	if _, err := s.Write([]byte(`{"msg":"late"}`)); err == nil {
		t.Error("expected error writing to closed sink")
	}
}

func TestEntryString(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC),
		Level:     "INFO",
		Scope:     "provider",
		Message:   "instance running",
	}
	want := "09:15:00 INFO [provider] instance running"
	if got := e.String(); got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}

func TestMatchesScope(t *testing.T) {
	e := Entry{Scope: "provision.api-server"}
	if !e.MatchesScope("") {
		t.Error("empty prefix should match")
	}
	if !e.MatchesScope("provision.") {
		t.Error("prefix should match")
	}
	if e.MatchesScope("sync") {
		t.Error("wrong prefix should not match")
	}
}

func TestNormalizeLevel(t *testing.T) {
	cases := map[string]string{
		"debug": "DEBUG", "info": "INFO", "warning": "WARN",
		"warn": "WARN", "error": "ERROR", "whatever": "INFO",
	}
	for in, want := range cases {
		if got := NormalizeLevel(in); got != want {
			t.Errorf("NormalizeLevel(%q): got %q, want %q", in, got, want)
		}
	}
}
