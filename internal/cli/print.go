// pattern: Functional Core
package cli

import (
	"fmt"
	"io"

	"benchup/internal/instance"
	"benchup/internal/workspace"
)

// printWorkspaceStatuses renders one line per manifest project.
func printWorkspaceStatuses(w io.Writer, statuses []workspace.Status) {
	fmt.Fprintf(w, "Projects:\n")
	for _, st := range statuses {
		switch st.State {
		case workspace.StateResolved:
			branch := st.Branch
			if branch == "" {
				branch = "?"
			}
			if st.Target != "" {
				fmt.Fprintf(w, "  %-20s resolved  %s -> %s (%s)\n", st.Project.Name, st.Path, st.Target, branch)
			} else {
				fmt.Fprintf(w, "  %-20s resolved  %s (%s)\n", st.Project.Name, st.Path, branch)
			}
		case workspace.StateSkipped:
			fmt.Fprintf(w, "  %-20s skipped\n", st.Project.Name)
		default:
			fmt.Fprintf(w, "  %-20s unresolved\n", st.Project.Name)
		}
	}
}

// printDashboardStatus renders the payload from a running instance.
func printDashboardStatus(w io.Writer, st instance.DashboardStatus) {
	fmt.Fprintf(w, "Projects:\n")
	for _, p := range st.Projects {
		switch p.State {
		case string(workspace.StateResolved):
			branch := p.Branch
			if branch == "" {
				branch = "?"
			}
			fmt.Fprintf(w, "  %-20s resolved  %s (%s)\n", p.Name, p.Path, branch)
		default:
			fmt.Fprintf(w, "  %-20s %s\n", p.Name, p.State)
		}
	}

	if st.Workbench == nil {
		fmt.Fprintf(w, "\nWorkbench: not launched\n")
		return
	}
	fmt.Fprintf(w, "\nWorkbench: %s at %s (%s)\n", st.Workbench.InstanceID, st.Workbench.Address, st.VMState)
	if st.ListenAddr != "" {
		fmt.Fprintf(w, "Dashboard: http://%s\n", st.ListenAddr)
	}
}
