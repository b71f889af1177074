// pattern: Functional Core

package workspace

import "benchup/internal/config"

// State describes how a manifest project stands in the workspace.
type State string

const (
	// StateUnresolved: nothing at the workspace path yet.
	StateUnresolved State = "unresolved"
	// StateResolved: a real checkout (cloned or symlinked) is in place.
	StateResolved State = "resolved"
	// StateSkipped: the operator opted out; a skip marker holds the slot.
	StateSkipped State = "skipped"
)

// Status is the resolved view of one manifest project.
type Status struct {
	Project config.Project
	State   State
	Path    string // workspace path (clone target or symlink)
	Target  string // symlink target when the checkout lives elsewhere
	Branch  string // current git branch, when a checkout exists
	Remote  string // origin URL, when a checkout exists
}

// Candidate is an existing checkout found under a scan path that matches
// a manifest project by directory name.
type Candidate struct {
	Name   string
	Path   string
	Branch string
	Remote string
}
