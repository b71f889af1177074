package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"benchup/internal/workspace"
)

// projectItem wraps a workspace status for the bubbles list.
type projectItem struct {
	status workspace.Status
}

func (i projectItem) FilterValue() string {
	return i.status.Project.Name
}

// projectDelegate renders one project row with its resolution state.
type projectDelegate struct {
	styles *Styles
}

func newProjectDelegate(styles *Styles) projectDelegate {
	return projectDelegate{styles: styles}
}

func (d projectDelegate) Height() int                             { return 1 }
func (d projectDelegate) Spacing() int                            { return 0 }
func (d projectDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	pi, ok := item.(projectItem)
	if !ok {
		return
	}
	st := pi.status

	cursor := "  "
	if index == m.Index() {
		cursor = d.styles.AccentStyle().Render("> ")
	}

	var stateStr string
	switch st.State {
	case workspace.StateResolved:
		stateStr = d.styles.ResolvedStyle().Render("resolved")
	case workspace.StateSkipped:
		stateStr = d.styles.SkippedStyle().Render("skipped")
	default:
		stateStr = d.styles.UnresolvedStyle().Render("unresolved")
	}

	detail := ""
	if st.State == workspace.StateResolved {
		detail = st.Path
		if st.Branch != "" {
			detail = fmt.Sprintf("%s (%s)", detail, st.Branch)
		}
	}

	fmt.Fprintf(w, "%s%-20s %-12s %s", cursor, st.Project.Name, stateStr, d.styles.SubtitleStyle().Render(detail))
}
