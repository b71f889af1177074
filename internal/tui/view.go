// pattern: Functional Core

package tui

import (
	"fmt"
	"strings"
)

const logPanelHeight = 10

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder

	b.WriteString(m.styles.TitleStyle().Render("benchup"))
	b.WriteString("\n")

	if m.formOpen {
		b.WriteString(m.viewForm())
		return b.String()
	}

	b.WriteString(m.projectList.View())
	b.WriteString("\n\n")
	b.WriteString(m.viewWorkbench())

	if m.flowRunning || len(m.flowDone) > 0 {
		b.WriteString("\n")
		b.WriteString(m.viewFlow())
	}

	if m.logPanelOpen && m.logReady {
		b.WriteString("\n")
		b.WriteString(m.styles.SubtitleStyle().Render("logs"))
		b.WriteString("\n")
		b.WriteString(m.logViewport.View())
	}

	if m.statusLine != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.AccentStyle().Render(m.statusLine))
	}

	b.WriteString("\n")
	b.WriteString(m.viewHelp())

	return b.String()
}

// viewWorkbench renders the workbench VM line.
func (m Model) viewWorkbench() string {
	if m.workbench == nil {
		return m.styles.SubtitleStyle().Render("Workbench: not launched")
	}
	line := fmt.Sprintf("Workbench: %s at %s", m.workbench.InstanceID, m.workbench.Address)
	if m.webURL != "" {
		line += "  " + m.webURL
	}
	return m.styles.InfoStyle().Render(line)
}

// viewFlow renders pipeline progress, one line per stage.
func (m Model) viewFlow() string {
	var b strings.Builder
	for _, res := range m.flowDone {
		if res.err != nil {
			b.WriteString(m.styles.ErrorStyle().Render(fmt.Sprintf("✗ %s: %v", res.step, res.err)))
		} else {
			b.WriteString(m.styles.ResolvedStyle().Render(fmt.Sprintf("✓ %s", res.step)))
		}
		b.WriteString("\n")
	}
	if m.flowRunning && m.flowCurrent != "" {
		b.WriteString(m.flowSpinner.View())
		b.WriteString(" ")
		b.WriteString(m.styles.InfoStyle().Render(string(m.flowCurrent)))
		b.WriteString("\n")
	}
	return b.String()
}

// viewForm renders the local-path form.
func (m Model) viewForm() string {
	var b strings.Builder
	b.WriteString(m.styles.SubtitleStyle().Render(fmt.Sprintf("Local checkout for %s", m.formProject)))
	b.WriteString("\n")
	b.WriteString(m.styles.InfoStyle().Render("Path: " + m.formPath))
	b.WriteString(m.styles.AccentStyle().Render("▌"))
	b.WriteString("\n")
	if m.formError != "" {
		b.WriteString(m.styles.ErrorStyle().Render(m.formError))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.HelpStyle().Render("enter confirm · esc cancel"))
	return m.styles.BoxStyle().Render(b.String())
}

// viewHelp renders the key binding hints.
func (m Model) viewHelp() string {
	return m.styles.HelpStyle().Render(
		"c clone · u use local · s skip · x unskip · U up · l logs · r refresh · q quit")
}
