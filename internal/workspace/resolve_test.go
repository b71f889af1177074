package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"benchup/internal/config"
)

func TestValidateName(t *testing.T) {
	valid := []string{"api-server", "web_client", "proj.v2", "A1"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q): unexpected error %v", name, err)
		}
	}

	invalid := []string{"", "-leading", ".hidden", "has space", "a/../b", "a/b"}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q): expected error", name)
		}
	}
}

func TestInspectUnresolved(t *testing.T) {
	root := t.TempDir()
	st := Inspect(root, config.Project{Name: "api-server"})
	if st.State != StateUnresolved {
		t.Errorf("State: got %q, want unresolved", st.State)
	}
	if st.Path != filepath.Join(root, "api-server") {
		t.Errorf("Path: got %q", st.Path)
	}
}

func TestSkipAndInspect(t *testing.T) {
	root := t.TempDir()
	p := config.Project{Name: "api-server", Remote: "git@github.com:acme/{name}.git"}

	if err := Skip(root, p); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	// Marker and README stub exist
	if _, err := os.Stat(filepath.Join(root, "api-server", SkipMarker)); err != nil {
		t.Errorf("skip marker missing: %v", err)
	}
	readme, err := os.ReadFile(filepath.Join(root, "api-server", "README.md"))
	if err != nil {
		t.Fatalf("README stub missing: %v", err)
	}
	if !containsAll(string(readme), "api-server", "git@github.com:acme/api-server.git") {
		t.Errorf("README stub content: %s", readme)
	}

	st := Inspect(root, p)
	if st.State != StateSkipped {
		t.Errorf("State after Skip: got %q", st.State)
	}

	// Skip is idempotent
	if err := Skip(root, p); err != nil {
		t.Errorf("second Skip: %v", err)
	}
}

func TestSkipRefusesResolvedProject(t *testing.T) {
	root := t.TempDir()
	p := config.Project{Name: "api-server"}
	if err := os.MkdirAll(filepath.Join(root, "api-server"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := Skip(root, p); err == nil {
		t.Error("Skip should refuse a resolved project directory")
	}
}

func TestUnskip(t *testing.T) {
	root := t.TempDir()
	p := config.Project{Name: "api-server"}

	if err := Unskip(root, p); err == nil {
		t.Error("Unskip on non-skipped project should error")
	}

	if err := Skip(root, p); err != nil {
		t.Fatal(err)
	}
	if err := Unskip(root, p); err != nil {
		t.Fatalf("Unskip: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(root, "api-server")); !os.IsNotExist(err) {
		t.Error("placeholder should be removed")
	}
}

func TestUseLocalRequiresExistingDirectory(t *testing.T) {
	root := t.TempDir()
	p := config.Project{Name: "api-server"}

	err := UseLocal(root, p, filepath.Join(root, "does-not-exist"))
	if err == nil {
		t.Fatal("UseLocal with nonexistent path should error")
	}

	// A file is not a directory either
	f := filepath.Join(root, "afile")
	if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := UseLocal(root, p, f); err == nil {
		t.Fatal("UseLocal with a file should error")
	}
}

func TestUseLocalSymlinksOutsideCheckout(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	checkout := filepath.Join(elsewhere, "api-server")
	if err := os.MkdirAll(checkout, 0755); err != nil {
		t.Fatal(err)
	}

	p := config.Project{Name: "api-server"}
	if err := UseLocal(root, p, checkout); err != nil {
		t.Fatalf("UseLocal: %v", err)
	}

	dest := filepath.Join(root, "api-server")
	info, err := os.Lstat(dest)
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("expected a symlink into the workspace")
	}
	target, _ := os.Readlink(dest)
	if target != checkout {
		t.Errorf("symlink target: got %q, want %q", target, checkout)
	}

	st := Inspect(root, p)
	if st.State != StateResolved {
		t.Errorf("State after UseLocal: got %q", st.State)
	}
	if st.Target != checkout {
		t.Errorf("Status.Target: got %q", st.Target)
	}
}

func TestUseLocalInPlaceIsNoop(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "api-server")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}

	p := config.Project{Name: "api-server"}
	if err := UseLocal(root, p, dest); err != nil {
		t.Fatalf("UseLocal in place: %v", err)
	}
	info, _ := os.Lstat(dest)
	if info.Mode()&os.ModeSymlink != 0 {
		t.Error("in-place checkout must not be replaced by a symlink")
	}
}

func TestUseLocalRefusesOccupiedSlot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "api-server"), 0755); err != nil {
		t.Fatal(err)
	}
	other := t.TempDir()

	p := config.Project{Name: "api-server"}
	if err := UseLocal(root, p, other); err == nil {
		t.Error("UseLocal should refuse when the workspace slot is occupied")
	}
}

func TestCloneValidation(t *testing.T) {
	root := t.TempDir()

	if err := Clone(root, config.Project{Name: "api-server"}); err == nil {
		t.Error("Clone without remote should error")
	}

	if err := os.MkdirAll(filepath.Join(root, "api-server"), 0755); err != nil {
		t.Fatal(err)
	}
	p := config.Project{Name: "api-server", Remote: "git@github.com:acme/{name}.git"}
	if err := Clone(root, p); err == nil {
		t.Error("Clone into occupied slot should error")
	}
}

func TestCloneSurfacesGitOutput(t *testing.T) {
	if _, err := os.Stat("/usr/bin/git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	p := config.Project{Name: "api-server", Remote: filepath.Join(t.TempDir(), "no-such-repo")}
	err := Clone(root, p)
	if err == nil {
		t.Fatal("clone from nonexistent repo should fail")
	}
	if !containsAll(err.Error(), "git clone") {
		t.Errorf("error should name the clone: %v", err)
	}
}

func TestResolvedPathsSkipsUnresolved(t *testing.T) {
	root := t.TempDir()
	projects := []config.Project{
		{Name: "resolved"},
		{Name: "skipped"},
		{Name: "absent"},
	}
	if err := os.MkdirAll(filepath.Join(root, "resolved"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := Skip(root, projects[1]); err != nil {
		t.Fatal(err)
	}

	got := ResolvedPaths(root, projects)
	if len(got) != 1 || got[0].Project.Name != "resolved" {
		t.Errorf("ResolvedPaths: got %+v", got)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
