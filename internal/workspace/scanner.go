// pattern: Imperative Shell

package workspace

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"benchup/internal/config"
)

// Scanner finds existing checkouts of manifest projects under scan paths.
type Scanner struct{}

// NewScanner creates a project scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// ScanAll walks each path one level deep and returns checkouts whose
// directory name matches a manifest project. Inaccessible paths are
// skipped silently; duplicate symlinked directories are deduped.
func (s *Scanner) ScanAll(paths []string, projects []config.Project) []Candidate {
	wanted := make(map[string]bool, len(projects))
	for _, p := range projects {
		wanted[p.Name] = true
	}

	var found []Candidate
	seen := make(map[string]bool)

	for _, scanPath := range paths {
		entries, err := os.ReadDir(scanPath)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() || !wanted[entry.Name()] {
				continue
			}
			candidatePath := filepath.Join(scanPath, entry.Name())

			resolved, err := filepath.EvalSymlinks(candidatePath)
			if err != nil {
				resolved = candidatePath
			}
			if seen[resolved] {
				continue
			}
			seen[resolved] = true

			if !isGitRepo(resolved) {
				continue
			}

			found = append(found, Candidate{
				Name:   entry.Name(),
				Path:   resolved,
				Branch: gitBranch(resolved),
				Remote: gitRemote(resolved),
			})
		}
	}

	return found
}

// isGitRepo reports whether dir is inside a git work tree.
func isGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// gitBranch returns the current branch, or "" on detached HEAD / error.
func gitBranch(dir string) string {
	cmd := exec.Command("git", "branch", "--show-current")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// gitRemote returns the origin fetch URL, or "" when unset.
func gitRemote(dir string) string {
	cmd := exec.Command("git", "remote", "get-url", "origin")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
