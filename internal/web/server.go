// pattern: Imperative Shell

package web

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"benchup/internal/config"
	"benchup/internal/logging"
	"benchup/internal/workspace"
)

// workspaceOps abstracts workspace package functions for testability.
type workspaceOps interface {
	InspectAll(root string, projects []config.Project) []workspace.Status
	Inspect(root string, project config.Project) workspace.Status
	Clone(root string, project config.Project) error
	UseLocal(root string, project config.Project, localPath string) error
	Skip(root string, project config.Project) error
	Unskip(root string, project config.Project) error
}

// realWorkspaceOps delegates to the workspace package functions.
type realWorkspaceOps struct{}

func (realWorkspaceOps) InspectAll(root string, projects []config.Project) []workspace.Status {
	return workspace.InspectAll(root, projects)
}

func (realWorkspaceOps) Inspect(root string, project config.Project) workspace.Status {
	return workspace.Inspect(root, project)
}

func (realWorkspaceOps) Clone(root string, project config.Project) error {
	return workspace.Clone(root, project)
}

func (realWorkspaceOps) UseLocal(root string, project config.Project, localPath string) error {
	return workspace.UseLocal(root, project, localPath)
}

func (realWorkspaceOps) Skip(root string, project config.Project) error {
	return workspace.Skip(root, project)
}

func (realWorkspaceOps) Unskip(root string, project config.Project) error {
	return workspace.Unskip(root, project)
}

// Server is the web server that serves the dashboard API and static UI.
type Server struct {
	httpServer   *http.Server
	cfg          config.Config
	dataDir      string
	notifyTUI    func(any)
	logger       *logging.Logger
	addr         string
	listener     net.Listener
	events       *eventBroker
	workspaceOps workspaceOps
	syncFn       func(ctx context.Context) error
	keyPath      string
}

// Config holds web server configuration.
type Config struct {
	Bind string
	Port int
}

// New creates a web server.
// notifyTUI is called after mutations to keep the TUI in sync via p.Send().
// syncFn pushes all resolved project folders to the guest; nil disables
// the sync endpoint. keyPath is the ssh private key for the terminal.
func New(cfg Config, appCfg config.Config, dataDir string, notifyTUI func(any), logProvider logging.Provider, syncFn func(ctx context.Context) error, keyPath string) *Server {
	logger := logProvider.For("web")
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:          appCfg,
		dataDir:      dataDir,
		notifyTUI:    notifyTUI,
		logger:       logger,
		addr:         addr,
		events:       newEventBroker(),
		workspaceOps: realWorkspaceOps{},
		syncFn:       syncFn,
		keyPath:      keyPath,
	}

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects/{name}/clone", s.handleCloneProject)
	mux.HandleFunc("POST /api/projects/{name}/use", s.handleUseProject)
	mux.HandleFunc("POST /api/projects/{name}/skip", s.handleSkipProject)
	mux.HandleFunc("POST /api/projects/{name}/unskip", s.handleUnskipProject)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("GET /api/terminal", s.HandleTerminal)
	mux.Handle("/", s.staticHandler())

	return s
}

// staticHandler serves the embedded dashboard page.
// Unknown paths fall back to index.html.
func (s *Server) staticHandler() http.Handler {
	dist, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.logger.Error("failed to create sub filesystem", "error", err)
		return http.NotFoundHandler()
	}
	fileServer := http.FileServer(http.FS(dist))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		_, err := fs.Stat(dist, path)
		if os.IsNotExist(err) {
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}

// Listen binds the server to its configured address and returns the listener.
// Call Serve() after Listen() to start accepting connections.
// This two-step approach allows callers to obtain the actual bound address
// (useful for ephemeral port 0 in tests) before the server blocks on Serve().
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("web server listen: %w", err)
	}
	s.listener = ln
	return ln, nil
}

// Serve accepts connections on the listener. Blocks until the server stops.
// Must call Listen() first.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web server started", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Start is a convenience that calls Listen() then Serve(). Blocks until the server stops.
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Addr returns the address the server is listening on.
// Only valid after Listen() or Start() has been called.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("web server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// SetWorkspaceOpsForTest replaces the workspaceOps implementation. Test-only.
func (s *Server) SetWorkspaceOpsForTest(ops workspaceOps) {
	s.workspaceOps = ops
}
