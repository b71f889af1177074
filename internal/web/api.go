// pattern: Imperative Shell

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"benchup/internal/config"
	"benchup/internal/events"
	"benchup/internal/instance"
	"benchup/internal/workspace"
)

// UseRequest is the body for POST /api/projects/{name}/use.
type UseRequest struct {
	Path string `json:"path"`
}

// projectStatus converts a workspace status to its JSON representation.
func projectStatus(st workspace.Status) instance.ProjectStatus {
	return instance.ProjectStatus{
		Name:   st.Project.Name,
		State:  string(st.State),
		Path:   st.Path,
		Branch: st.Branch,
	}
}

// buildStatus assembles the dashboard payload from the workspace and the
// recorded workbench VM.
func (s *Server) buildStatus() instance.DashboardStatus {
	statuses := s.workspaceOps.InspectAll(s.cfg.ResolveWorkspaceRoot(), s.cfg.Projects)
	result := instance.DashboardStatus{
		Projects:   make([]instance.ProjectStatus, 0, len(statuses)),
		ListenAddr: s.Addr(),
	}
	for _, st := range statuses {
		result.Projects = append(result.Projects, projectStatus(st))
	}

	st, ok, err := instance.LoadState(s.dataDir)
	if err != nil {
		s.logger.Warn("reading workbench state", "error", err)
	}
	if ok {
		result.Workbench = &st
		result.VMState = "launched"
	}
	return result
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.buildStatus())
}

// handleListProjects handles GET /api/projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	statuses := s.workspaceOps.InspectAll(s.cfg.ResolveWorkspaceRoot(), s.cfg.Projects)
	result := make([]instance.ProjectStatus, 0, len(statuses))
	for _, st := range statuses {
		result = append(result, projectStatus(st))
	}
	writeJSON(w, http.StatusOK, result)
}

// lookupProject resolves the {name} path value against the manifest.
func (s *Server) lookupProject(w http.ResponseWriter, r *http.Request) (config.Project, bool) {
	name := r.PathValue("name")
	project, ok := s.cfg.FindProject(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown project")
		return config.Project{}, false
	}
	return project, true
}

// mutated signals both the SSE subscribers and the TUI after a change.
func (s *Server) mutated(action, project string) {
	s.events.Notify()
	if s.notifyTUI != nil {
		s.notifyTUI(events.WebActionMsg{Action: action, Project: project})
	}
}

// handleCloneProject handles POST /api/projects/{name}/clone.
func (s *Server) handleCloneProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.lookupProject(w, r)
	if !ok {
		return
	}
	if err := s.workspaceOps.Clone(s.cfg.ResolveWorkspaceRoot(), project); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.mutated("clone", project.Name)
	st := s.workspaceOps.Inspect(s.cfg.ResolveWorkspaceRoot(), project)
	writeJSON(w, http.StatusOK, projectStatus(st))
}

// handleUseProject handles POST /api/projects/{name}/use.
func (s *Server) handleUseProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	var req UseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := s.workspaceOps.UseLocal(s.cfg.ResolveWorkspaceRoot(), project, req.Path); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.mutated("use", project.Name)
	st := s.workspaceOps.Inspect(s.cfg.ResolveWorkspaceRoot(), project)
	writeJSON(w, http.StatusOK, projectStatus(st))
}

// handleSkipProject handles POST /api/projects/{name}/skip.
func (s *Server) handleSkipProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.lookupProject(w, r)
	if !ok {
		return
	}
	if err := s.workspaceOps.Skip(s.cfg.ResolveWorkspaceRoot(), project); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.mutated("skip", project.Name)
	st := s.workspaceOps.Inspect(s.cfg.ResolveWorkspaceRoot(), project)
	writeJSON(w, http.StatusOK, projectStatus(st))
}

// handleUnskipProject handles POST /api/projects/{name}/unskip.
func (s *Server) handleUnskipProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.lookupProject(w, r)
	if !ok {
		return
	}
	if err := s.workspaceOps.Unskip(s.cfg.ResolveWorkspaceRoot(), project); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.mutated("unskip", project.Name)
	st := s.workspaceOps.Inspect(s.cfg.ResolveWorkspaceRoot(), project)
	writeJSON(w, http.StatusOK, projectStatus(st))
}

// handleSync handles POST /api/sync. Pushes all resolved project folders
// to the guest and blocks until the push completes.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncFn == nil {
		writeError(w, http.StatusBadRequest, "no workbench VM to sync to")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	if err := s.syncFn(ctx); err != nil {
		if s.notifyTUI != nil {
			s.notifyTUI(events.SyncCompletedMsg{Err: err})
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.events.Notify()
	if s.notifyTUI != nil {
		s.notifyTUI(events.SyncCompletedMsg{})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
