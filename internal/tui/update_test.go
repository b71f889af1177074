package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"benchup/internal/config"
	"benchup/internal/instance"
	"benchup/internal/workspace"
)

type fakeFlow struct {
	launchErr    error
	syncErr      error
	provisionErr error
	calls        []string
}

func (f *fakeFlow) Launch(ctx context.Context) (instance.State, error) {
	f.calls = append(f.calls, "launch")
	return instance.State{InstanceID: "i-0abc"}, f.launchErr
}

func (f *fakeFlow) Sync(ctx context.Context) error {
	f.calls = append(f.calls, "sync")
	return f.syncErr
}

func (f *fakeFlow) Provision(ctx context.Context) error {
	f.calls = append(f.calls, "provision")
	return f.provisionErr
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Projects = []config.Project{{Name: "api"}, {Name: "web"}}
	return cfg
}

func newTestModel(t *testing.T, flow Flow) Model {
	t.Helper()
	m := NewModel(testConfig(), t.TempDir(), flow, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func TestUpdate_StatusesMsgPopulatesList(t *testing.T) {
	m := newTestModel(t, nil)

	statuses := []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateResolved, Path: "/ws/api"},
		{Project: config.Project{Name: "web"}, State: workspace.StateUnresolved},
	}
	updated, _ := m.Update(statusesMsg{statuses: statuses})
	m = updated.(Model)

	if len(m.Statuses()) != 2 {
		t.Fatalf("got %d statuses, want 2", len(m.Statuses()))
	}
	if len(m.projectList.Items()) != 2 {
		t.Errorf("list has %d items, want 2", len(m.projectList.Items()))
	}
}

func TestUpdate_FlowRefusedWithUnresolvedProjects(t *testing.T) {
	flow := &fakeFlow{}
	m := newTestModel(t, flow)

	updated, _ := m.Update(statusesMsg{statuses: []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateUnresolved},
	}})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("U")})
	m = updated.(Model)

	if m.FlowRunning() {
		t.Error("flow should not start with unresolved projects")
	}
	if len(flow.calls) != 0 {
		t.Errorf("flow was called: %v", flow.calls)
	}
}

func TestUpdate_FlowChainsStages(t *testing.T) {
	flow := &fakeFlow{}
	m := newTestModel(t, flow)

	updated, _ := m.Update(statusesMsg{statuses: []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateResolved},
	}})
	m = updated.(Model)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("U")})
	m = updated.(Model)
	if !m.FlowRunning() {
		t.Fatal("flow should be running after U")
	}
	if cmd == nil {
		t.Fatal("U should return a command")
	}

	// Drive the pipeline to completion by feeding back step results.
	for _, step := range []flowStep{stepLaunch, stepSync, stepProvision} {
		updated, _ = m.Update(stepDoneMsg{step: step})
		m = updated.(Model)
	}

	if m.FlowRunning() {
		t.Error("flow should be finished")
	}
	if len(m.flowDone) != 3 {
		t.Errorf("got %d completed stages, want 3", len(m.flowDone))
	}
}

func TestUpdate_FlowStopsAtFirstFailure(t *testing.T) {
	flow := &fakeFlow{}
	m := newTestModel(t, flow)

	updated, _ := m.Update(statusesMsg{statuses: []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateSkipped},
	}})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("U")})
	m = updated.(Model)

	updated, _ = m.Update(stepDoneMsg{step: stepLaunch, err: errors.New("RunInstances denied")})
	m = updated.(Model)

	if m.FlowRunning() {
		t.Error("flow should stop after a failed stage")
	}
	if m.statusLine == "" {
		t.Error("status line should surface the failure")
	}
}

func TestUpdate_FormInput(t *testing.T) {
	m := newTestModel(t, nil)

	updated, _ := m.Update(statusesMsg{statuses: []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateUnresolved},
	}})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	m = updated.(Model)
	if !m.IsFormOpen() {
		t.Fatal("form should open on u")
	}

	for _, r := range "/src/api" {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(Model)
	}
	if m.FormPath() != "/src/api" {
		t.Errorf("form path = %q, want /src/api", m.FormPath())
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = updated.(Model)
	if m.FormPath() != "/src/ap" {
		t.Errorf("form path after backspace = %q", m.FormPath())
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.IsFormOpen() {
		t.Error("form should close on esc")
	}
}

func TestUpdate_FormEnterRequiresPath(t *testing.T) {
	m := newTestModel(t, nil)

	updated, _ := m.Update(statusesMsg{statuses: []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateUnresolved},
	}})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if !m.IsFormOpen() {
		t.Error("form should stay open when path is empty")
	}
	if m.FormError() == "" {
		t.Error("empty path should set a form error")
	}
}

func TestUpdate_DoubleCtrlCQuits(t *testing.T) {
	m := newTestModel(t, nil)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("first ctrl+c should return a status-clear command")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second ctrl+c should return quit")
	}
	if msg := cmd(); msg == nil {
		t.Error("expected tea.Quit message")
	}
}

func TestUpdate_LogEntryAppendsBounded(t *testing.T) {
	m := newTestModel(t, nil)

	for i := 0; i < maxLogLines+50; i++ {
		m.appendLogLine("line")
	}
	if len(m.logLines) != maxLogLines {
		t.Errorf("log buffer = %d lines, want %d", len(m.logLines), maxLogLines)
	}
}

func TestFirstUnresolved(t *testing.T) {
	statuses := []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateResolved},
		{Project: config.Project{Name: "web"}, State: workspace.StateUnresolved},
	}
	name, ok := firstUnresolved(statuses)
	if !ok || name != "web" {
		t.Errorf("firstUnresolved = %q, %v", name, ok)
	}

	if _, ok := firstUnresolved(statuses[:1]); ok {
		t.Error("no unresolved projects expected")
	}
}
