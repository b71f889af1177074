// pattern: Imperative Shell

package workspace

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"benchup/internal/config"
)

// SkipMarker is the file that records an operator's decision to leave a
// project out of this workbench.
const SkipMarker = ".benchup-skip"

// validNameRe matches valid project names: alphanumeric start, then
// alphanumeric, dots, hyphens, underscores.
var validNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateName checks a project name before it is used as a directory name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("project name too long (max 100 characters)")
	}
	if !validNameRe.MatchString(name) {
		return fmt.Errorf("invalid project name %q: must start with alphanumeric, may contain a-z A-Z 0-9 . _ -", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("project name cannot contain '..'")
	}
	return nil
}

// ProjectDir returns the workspace path a project resolves into.
func ProjectDir(root, name string) string {
	return filepath.Join(root, name)
}

// Inspect reports the resolution state of one manifest project.
func Inspect(root string, project config.Project) Status {
	st := Status{
		Project: project,
		State:   StateUnresolved,
		Path:    ProjectDir(root, project.Name),
	}

	info, err := os.Lstat(st.Path)
	if err != nil {
		return st
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(st.Path)
		if err == nil {
			st.Target = target
		}
	}

	if _, err := os.Stat(filepath.Join(st.Path, SkipMarker)); err == nil {
		st.State = StateSkipped
		return st
	}

	st.State = StateResolved
	st.Branch = gitBranch(st.Path)
	st.Remote = gitRemote(st.Path)
	return st
}

// InspectAll reports resolution state for every manifest project, in
// manifest order.
func InspectAll(root string, projects []config.Project) []Status {
	out := make([]Status, 0, len(projects))
	for _, p := range projects {
		out = append(out, Inspect(root, p))
	}
	return out
}

// UseLocal resolves a project to an existing checkout. The path must
// exist as a directory. When the checkout lives outside the workspace
// root it is symlinked in.
func UseLocal(root string, project config.Project, localPath string) error {
	if err := ValidateName(project.Name); err != nil {
		return err
	}

	localPath = config.ExpandPath(localPath)
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("local path %s: %w", localPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local path %s is not a directory", localPath)
	}

	dest := ProjectDir(root, project.Name)
	if sameDir(dest, localPath) {
		return nil
	}

	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("project %q already present at %s", project.Name, dest)
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("creating workspace root: %w", err)
	}

	if err := os.Symlink(localPath, dest); err != nil {
		return fmt.Errorf("linking %s into workspace: %w", localPath, err)
	}
	return nil
}

// Clone fetches the project from its remote URL template at the
// configured branch. A failed clone surfaces git's captured output.
func Clone(root string, project config.Project) error {
	if err := ValidateName(project.Name); err != nil {
		return err
	}

	remote := project.RemoteURL()
	if remote == "" {
		return fmt.Errorf("project %q has no remote configured", project.Name)
	}

	dest := ProjectDir(root, project.Name)
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("project %q already present at %s", project.Name, dest)
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("creating workspace root: %w", err)
	}

	args := []string{"clone"}
	if project.Branch != "" {
		args = append(args, "--branch", project.Branch)
	}
	args = append(args, remote, dest)

	cmd := exec.Command("git", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone %s: %s: %w", remote, strings.TrimSpace(string(output)), err)
	}
	return nil
}

// Skip marks a project as deliberately absent: a placeholder directory
// with a skip marker and a README stub explaining the hole.
func Skip(root string, project config.Project) error {
	if err := ValidateName(project.Name); err != nil {
		return err
	}

	dest := ProjectDir(root, project.Name)
	if info, err := os.Lstat(dest); err == nil {
		if _, markerErr := os.Stat(filepath.Join(dest, SkipMarker)); markerErr == nil {
			return nil // already skipped
		}
		if info.Mode()&os.ModeSymlink != 0 || info.IsDir() {
			return fmt.Errorf("project %q already resolved at %s", project.Name, dest)
		}
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("creating placeholder: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dest, SkipMarker), []byte{}, 0644); err != nil {
		return fmt.Errorf("writing skip marker: %w", err)
	}

	readme := fmt.Sprintf("# %s\n\nSkipped during workbench setup. Remove this directory and re-run\nbenchup to clone it from %s.\n", project.Name, project.RemoteURL())
	if err := os.WriteFile(filepath.Join(dest, "README.md"), []byte(readme), 0644); err != nil {
		return fmt.Errorf("writing README stub: %w", err)
	}
	return nil
}

// Unskip removes a skip placeholder so the project can be resolved again.
// Refuses to touch a directory that is not a skip placeholder.
func Unskip(root string, project config.Project) error {
	dest := ProjectDir(root, project.Name)
	if _, err := os.Stat(filepath.Join(dest, SkipMarker)); err != nil {
		return fmt.Errorf("project %q is not skipped", project.Name)
	}
	return os.RemoveAll(dest)
}

// ResolvedPaths returns workspace paths for every resolved project, in
// manifest order. Skipped and unresolved projects are left out.
func ResolvedPaths(root string, projects []config.Project) []Status {
	var out []Status
	for _, st := range InspectAll(root, projects) {
		if st.State == StateResolved {
			out = append(out, st)
		}
	}
	return out
}

// sameDir reports whether two paths refer to the same directory after
// symlink resolution.
func sameDir(a, b string) bool {
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		return false
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		return false
	}
	return ra == rb
}
