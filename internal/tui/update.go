// pattern: Imperative Shell

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"benchup/internal/events"
	"benchup/internal/instance"
	"benchup/internal/logging"
	"benchup/internal/workspace"
)

// doubleCtrlCWindow is the maximum time between two ctrl+c presses to trigger quit.
const doubleCtrlCWindow = 500 * time.Millisecond

// statusesMsg delivers a fresh workspace inspection.
type statusesMsg struct {
	statuses  []workspace.Status
	workbench *instance.State
}

// actionDoneMsg is sent when a repo resolution action completes.
type actionDoneMsg struct {
	action  string
	project string
	err     error
}

// stepDoneMsg is sent when a pipeline stage finishes.
type stepDoneMsg struct {
	step flowStep
	err  error
}

// logEntryMsg delivers one log entry from the logging channel.
type logEntryMsg struct {
	entry logging.Entry
}

// tickMsg drives the periodic refresh.
type tickMsg struct {
	time time.Time
}

// clearStatusMsg is sent after a timed delay to clear the status bar.
type clearStatusMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		listHeight := m.height - 10
		if m.logPanelOpen {
			listHeight -= logPanelHeight
		}
		if listHeight < 3 {
			listHeight = 3
		}
		m.projectList.SetSize(m.width-4, listHeight)

		if m.logPanelOpen {
			if !m.logReady {
				m.logViewport = viewport.New(m.width-4, logPanelHeight)
				m.logReady = true
			} else {
				m.logViewport.Width = m.width - 4
				m.logViewport.Height = logPanelHeight
			}
			m.updateLogViewportContent()
		}
		return m, nil

	case tea.KeyMsg:
		if m.formOpen {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)

	case statusesMsg:
		m.statuses = msg.statuses
		m.workbench = msg.workbench
		items := make([]list.Item, 0, len(msg.statuses))
		for _, st := range msg.statuses {
			items = append(items, projectItem{status: st})
		}
		m.projectList.SetItems(items)
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.statusLine = fmt.Sprintf("%s %s: %v", msg.action, msg.project, msg.err)
		} else {
			m.statusLine = fmt.Sprintf("%s %s: done", msg.action, msg.project)
		}
		return m, tea.Batch(m.refreshStatuses(), clearStatusAfter(5*time.Second))

	case stepDoneMsg:
		m.flowDone = append(m.flowDone, stepResult{step: msg.step, err: msg.err})
		if msg.err != nil {
			// Fail fast: stop the pipeline at the first broken stage.
			m.flowRunning = false
			m.flowCurrent = ""
			m.statusLine = fmt.Sprintf("%s failed: %v", msg.step, msg.err)
			return m, tea.Batch(m.refreshStatuses(), clearStatusAfter(10*time.Second))
		}
		next := nextStep(msg.step)
		if next == "" {
			m.flowRunning = false
			m.flowCurrent = ""
			m.statusLine = "workbench ready"
			return m, tea.Batch(m.refreshStatuses(), clearStatusAfter(5*time.Second))
		}
		m.flowCurrent = next
		return m, m.runStep(next)

	case logEntryMsg:
		m.appendLogLine(msg.entry.String())
		return m, listenLogs(m.logChan)

	case tickMsg:
		return m, tea.Batch(m.refreshStatuses(), m.tick())

	case clearStatusMsg:
		m.statusLine = ""
		return m, nil

	case spinner.TickMsg:
		if !m.flowRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.flowSpinner, cmd = m.flowSpinner.Update(msg)
		return m, cmd

	case events.WebListenURLMsg:
		m.webURL = msg.URL
		return m, nil

	case events.WebActionMsg:
		return m, m.refreshStatuses()

	case events.SyncCompletedMsg:
		if msg.Err != nil {
			m.statusLine = fmt.Sprintf("sync: %v", msg.Err)
		} else {
			m.statusLine = "sync: done"
		}
		return m, clearStatusAfter(5 * time.Second)
	}

	return m, nil
}

// updateKeys handles keyboard input outside the form.
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		now := time.Now()
		if now.Sub(m.lastCtrlC) < doubleCtrlCWindow {
			return m, tea.Quit
		}
		m.lastCtrlC = now
		m.statusLine = "press ctrl+c again to quit"
		return m, clearStatusAfter(time.Second)

	case "q":
		return m, tea.Quit

	case "r":
		return m, m.refreshStatuses()

	case "c":
		return m.runAction("clone", func(st workspace.Status) error {
			return workspace.Clone(m.cfg.ResolveWorkspaceRoot(), st.Project)
		})

	case "s":
		return m.runAction("skip", func(st workspace.Status) error {
			return workspace.Skip(m.cfg.ResolveWorkspaceRoot(), st.Project)
		})

	case "x":
		return m.runAction("unskip", func(st workspace.Status) error {
			return workspace.Unskip(m.cfg.ResolveWorkspaceRoot(), st.Project)
		})

	case "u":
		st, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		m.openForm(st.Project.Name)
		return m, nil

	case "U":
		if m.flowRunning || m.flow == nil {
			return m, nil
		}
		if name, ok := firstUnresolved(m.statuses); ok {
			m.statusLine = fmt.Sprintf("resolve or skip %s first", name)
			return m, clearStatusAfter(5 * time.Second)
		}
		m.flowRunning = true
		m.flowDone = nil
		m.flowCurrent = stepLaunch
		return m, tea.Batch(m.flowSpinner.Tick, m.runStep(stepLaunch))

	case "l":
		m.logPanelOpen = !m.logPanelOpen
		if m.logPanelOpen && m.width > 0 {
			if !m.logReady {
				m.logViewport = viewport.New(m.width-4, logPanelHeight)
				m.logReady = true
			}
			m.updateLogViewportContent()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.projectList, cmd = m.projectList.Update(msg)
	return m, cmd
}

// runAction executes a resolution action against the selected project.
func (m Model) runAction(action string, fn func(workspace.Status) error) (tea.Model, tea.Cmd) {
	st, ok := m.selectedProject()
	if !ok {
		return m, nil
	}
	return m, func() tea.Msg {
		return actionDoneMsg{action: action, project: st.Project.Name, err: fn(st)}
	}
}

// runStep executes one pipeline stage in the background.
func (m Model) runStep(step flowStep) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Minute)
		defer cancel()

		var err error
		switch step {
		case stepLaunch:
			_, err = flow.Launch(ctx)
		case stepSync:
			err = flow.Sync(ctx)
		case stepProvision:
			err = flow.Provision(ctx)
		}
		return stepDoneMsg{step: step, err: err}
	}
}

// nextStep returns the stage after the given one, or "" at the end.
func nextStep(step flowStep) flowStep {
	switch step {
	case stepLaunch:
		return stepSync
	case stepSync:
		return stepProvision
	default:
		return ""
	}
}

// firstUnresolved returns the first project that is neither resolved
// nor skipped.
func firstUnresolved(statuses []workspace.Status) (string, bool) {
	for _, st := range statuses {
		if st.State == workspace.StateUnresolved {
			return st.Project.Name, true
		}
	}
	return "", false
}

// appendLogLine adds a line to the bounded log buffer. Remote command
// output may carry escape sequences that would corrupt the viewport.
func (m *Model) appendLogLine(line string) {
	m.logLines = append(m.logLines, ansi.Strip(line))
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	if m.logReady {
		m.updateLogViewportContent()
	}
}

// updateLogViewportContent refreshes the viewport and keeps it pinned
// to the bottom.
func (m *Model) updateLogViewportContent() {
	m.logViewport.SetContent(strings.Join(m.logLines, "\n"))
	m.logViewport.GotoBottom()
}

// clearStatusAfter clears the status bar after a delay.
func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
