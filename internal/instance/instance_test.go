package instance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLockAndCleanup(t *testing.T) {
	dir := t.TempDir()

	fl, err := Lock(dir)
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, lockFileName)); err != nil {
		t.Errorf("lock file not created: %v", err)
	}

	if err := WritePort(dir, "127.0.0.1:7333"); err != nil {
		t.Fatalf("WritePort() error: %v", err)
	}

	Cleanup(dir, fl)

	if _, err := os.Stat(filepath.Join(dir, portFileName)); !os.IsNotExist(err) {
		t.Error("port file should be removed by Cleanup")
	}

	// Lock should be reacquirable after cleanup.
	fl2, err := Lock(dir)
	if err != nil {
		t.Fatalf("Lock() after Cleanup error: %v", err)
	}
	Cleanup(dir, fl2)
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	st := State{
		InstanceID: "i-0abc123",
		Address:    "ec2-1-2-3-4.compute-1.amazonaws.com",
		Region:     "us-east-1",
		SSHUser:    "ubuntu",
		LaunchedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}

	if err := SaveState(dir, st); err != nil {
		t.Fatalf("SaveState() error: %v", err)
	}

	got, ok, err := LoadState(dir)
	if err != nil {
		t.Fatalf("LoadState() error: %v", err)
	}
	if !ok {
		t.Fatal("LoadState() ok = false, want true")
	}
	if got != st {
		t.Errorf("LoadState() = %+v, want %+v", got, st)
	}
}

func TestLoadStateMissing(t *testing.T) {
	_, ok, err := LoadState(t.TempDir())
	if err != nil {
		t.Fatalf("LoadState() error: %v", err)
	}
	if ok {
		t.Error("LoadState() ok = true for empty dir, want false")
	}
}

func TestLoadStateCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, _, err := LoadState(dir)
	if err == nil {
		t.Fatal("LoadState() error = nil for corrupt file")
	}
	if !strings.Contains(err.Error(), stateFileName) {
		t.Errorf("error should name the state file, got: %v", err)
	}
}

func TestClearState(t *testing.T) {
	dir := t.TempDir()
	if err := SaveState(dir, State{InstanceID: "i-1"}); err != nil {
		t.Fatal(err)
	}
	if err := ClearState(dir); err != nil {
		t.Fatalf("ClearState() error: %v", err)
	}
	if _, ok, _ := LoadState(dir); ok {
		t.Error("state should be gone after ClearState")
	}
	// Clearing again is not an error.
	if err := ClearState(dir); err != nil {
		t.Errorf("ClearState() second call error: %v", err)
	}
}

func TestDiscoverNoInstance(t *testing.T) {
	_, err := Discover(t.TempDir())
	if err == nil {
		t.Fatal("Discover() error = nil with no running instance")
	}
	if !strings.Contains(err.Error(), "no running benchup instance") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDiscoverHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	fl, err := Lock(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer Cleanup(dir, fl)

	u, _ := url.Parse(srv.URL)
	if err := WritePort(dir, u.Host); err != nil {
		t.Fatal(err)
	}

	baseURL, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if baseURL != "http://"+u.Host {
		t.Errorf("Discover() = %q, want %q", baseURL, "http://"+u.Host)
	}
}

func TestDiscoverMissingPortFile(t *testing.T) {
	dir := t.TempDir()
	fl, err := Lock(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer Cleanup(dir, fl)

	_, err = Discover(dir)
	if err == nil {
		t.Fatal("Discover() error = nil with missing port file")
	}
	if !strings.Contains(err.Error(), "port file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"workbench": {"instance_id": "i-0abc", "address": "1.2.3.4", "region": "us-east-1", "ssh_user": "ubuntu", "launched_at": "2026-03-14T09:00:00Z"},
			"vm_state": "running",
			"projects": [{"name": "api", "state": "resolved", "path": "/src/api", "branch": "main"}],
			"listen_addr": "127.0.0.1:7333"
		}`))
	}))
	defer srv.Close()

	st, err := NewClient(srv.URL).Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if st.Workbench == nil || st.Workbench.InstanceID != "i-0abc" {
		t.Errorf("Workbench = %+v, want instance i-0abc", st.Workbench)
	}
	if st.VMState != "running" {
		t.Errorf("VMState = %q, want running", st.VMState)
	}
	if len(st.Projects) != 1 || st.Projects[0].Name != "api" {
		t.Errorf("Projects = %+v", st.Projects)
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Status(context.Background())
	if err == nil {
		t.Fatal("Status() error = nil for 500 response")
	}
}
