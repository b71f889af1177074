// pattern: Imperative Shell

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"benchup/internal/config"
	"benchup/internal/instance"
	"benchup/internal/logging"
	"benchup/internal/workspace"
)

// Flow runs the workbench pipeline stages. Injected so the model does
// not hold AWS or ssh clients directly.
type Flow interface {
	Launch(ctx context.Context) (instance.State, error)
	Sync(ctx context.Context) error
	Provision(ctx context.Context) error
}

// flowStep identifies one pipeline stage.
type flowStep string

const (
	stepLaunch    flowStep = "launch"
	stepSync      flowStep = "sync"
	stepProvision flowStep = "provision"
)

// stepResult records a finished pipeline stage for the progress pane.
type stepResult struct {
	step flowStep
	err  error
}

const maxLogLines = 500

// Model represents the TUI application state.
type Model struct {
	width     int
	height    int
	themeName string
	styles    *Styles

	cfg     config.Config
	dataDir string
	flow    Flow

	projectList list.Model
	statuses    []workspace.Status
	workbench   *instance.State

	flowRunning bool
	flowCurrent flowStep
	flowDone    []stepResult
	flowSpinner spinner.Model

	formOpen    bool
	formProject string
	formPath    string
	formError   string

	logPanelOpen bool
	logViewport  viewport.Model
	logReady     bool
	logLines     []string
	logChan      <-chan logging.Entry

	webURL     string
	statusLine string

	lastCtrlC time.Time

	err error
}

// NewModel creates a new TUI model with the given configuration.
// logChan carries structured log entries into the log panel; flow may
// be nil when no AWS credentials are configured.
func NewModel(cfg config.Config, dataDir string, flow Flow, logChan <-chan logging.Entry) Model {
	styles := NewStyles(cfg.Theme)

	delegate := newProjectDelegate(styles)
	projectList := list.New([]list.Item{}, delegate, 0, 0)
	projectList.SetShowTitle(false)
	projectList.SetShowStatusBar(false)
	projectList.SetFilteringEnabled(false)
	projectList.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.flavor.Teal().Hex))

	return Model{
		themeName:   cfg.Theme,
		styles:      styles,
		cfg:         cfg,
		dataDir:     dataDir,
		flow:        flow,
		projectList: projectList,
		flowSpinner: sp,
		logChan:     logChan,
	}
}

// Init returns the initial command to run.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.refreshStatuses(),
		m.tick(),
	}
	if m.logChan != nil {
		cmds = append(cmds, listenLogs(m.logChan))
	}
	return tea.Batch(cmds...)
}

// refreshStatuses re-inspects the workspace and the workbench record.
func (m Model) refreshStatuses() tea.Cmd {
	root := m.cfg.ResolveWorkspaceRoot()
	projects := m.cfg.Projects
	dataDir := m.dataDir
	return func() tea.Msg {
		statuses := workspace.InspectAll(root, projects)
		st, ok, _ := instance.LoadState(dataDir)
		var wb *instance.State
		if ok {
			wb = &st
		}
		return statusesMsg{statuses: statuses, workbench: wb}
	}
}

// tick returns a command for periodic refresh.
func (m Model) tick() tea.Cmd {
	return tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
		return tickMsg{time: t}
	})
}

// listenLogs waits for the next log entry from the channel.
func listenLogs(ch <-chan logging.Entry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return logEntryMsg{entry: entry}
	}
}

// Statuses returns the current workspace statuses. For tests and view code.
func (m Model) Statuses() []workspace.Status {
	return m.statuses
}

// Workbench returns the recorded VM, if any.
func (m Model) Workbench() *instance.State {
	return m.workbench
}

// FlowRunning reports whether the pipeline is in progress.
func (m Model) FlowRunning() bool {
	return m.flowRunning
}

// IsFormOpen returns true if the local-path form is open.
func (m Model) IsFormOpen() bool {
	return m.formOpen
}

// FormPath returns the current path input.
func (m Model) FormPath() string {
	return m.formPath
}

// FormError returns any validation error message.
func (m Model) FormError() string {
	return m.formError
}

// selectedProject returns the project under the cursor.
func (m Model) selectedProject() (workspace.Status, bool) {
	item, ok := m.projectList.SelectedItem().(projectItem)
	if !ok {
		return workspace.Status{}, false
	}
	return item.status, true
}
