// pattern: Imperative Shell

package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"benchup/internal/workspace"
)

// openForm opens the local-path form for the given project.
func (m *Model) openForm(project string) {
	m.formOpen = true
	m.formProject = project
	m.formPath = ""
	m.formError = ""
}

// resetForm clears the form state.
func (m *Model) resetForm() {
	m.formOpen = false
	m.formProject = ""
	m.formPath = ""
	m.formError = ""
}

// updateForm handles keyboard input while the local-path form is open.
func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.resetForm()
		return m, nil

	case "enter":
		if m.formPath == "" {
			m.formError = "Path is required"
			return m, nil
		}
		project, ok := m.cfg.FindProject(m.formProject)
		if !ok {
			m.resetForm()
			return m, nil
		}
		path := m.formPath
		name := m.formProject
		root := m.cfg.ResolveWorkspaceRoot()
		m.resetForm()
		return m, func() tea.Msg {
			return actionDoneMsg{
				action:  "use",
				project: name,
				err:     workspace.UseLocal(root, project, path),
			}
		}

	case "backspace":
		if len(m.formPath) > 0 {
			m.formPath = m.formPath[:len(m.formPath)-1]
		}
		m.formError = ""
		return m, nil

	default:
		if msg.Type == tea.KeySpace {
			m.formPath += " "
			m.formError = ""
		} else if msg.Type == tea.KeyRunes {
			m.formPath += string(msg.Runes)
			m.formError = ""
		}
		return m, nil
	}
}
