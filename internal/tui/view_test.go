package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"benchup/internal/config"
	"benchup/internal/instance"
	"benchup/internal/workspace"
)

func TestView_BeforeWindowSize(t *testing.T) {
	m := NewModel(testConfig(), t.TempDir(), nil, nil)
	if m.View() != "loading..." {
		t.Errorf("View() = %q before window size", m.View())
	}
}

func TestView_ShowsProjectsAndWorkbench(t *testing.T) {
	m := newTestModel(t, nil)

	updated, _ := m.Update(statusesMsg{
		statuses: []workspace.Status{
			{Project: config.Project{Name: "api"}, State: workspace.StateResolved, Path: "/ws/api", Branch: "main"},
		},
		workbench: &instance.State{InstanceID: "i-0abc", Address: "1.2.3.4"},
	})
	m = updated.(Model)

	out := m.View()
	for _, want := range []string{"benchup", "api", "i-0abc", "1.2.3.4"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_NoWorkbench(t *testing.T) {
	m := newTestModel(t, nil)
	if !strings.Contains(m.View(), "not launched") {
		t.Error("view should say the workbench is not launched")
	}
}

func TestView_FormReplacesList(t *testing.T) {
	m := newTestModel(t, nil)

	updated, _ := m.Update(statusesMsg{statuses: []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateUnresolved},
	}})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	m = updated.(Model)

	out := m.View()
	if !strings.Contains(out, "Local checkout for api") {
		t.Errorf("form view missing prompt:\n%s", out)
	}
}

func TestView_FlowProgress(t *testing.T) {
	m := newTestModel(t, &fakeFlow{})

	updated, _ := m.Update(statusesMsg{statuses: []workspace.Status{
		{Project: config.Project{Name: "api"}, State: workspace.StateSkipped},
	}})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("U")})
	m = updated.(Model)
	updated, _ = m.Update(stepDoneMsg{step: stepLaunch})
	m = updated.(Model)

	out := m.View()
	if !strings.Contains(out, "launch") {
		t.Error("view missing completed launch stage")
	}
	if !strings.Contains(out, "sync") {
		t.Error("view missing current sync stage")
	}
}
