// pattern: Imperative Shell
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"benchup/internal/cli"
	"benchup/internal/config"
	"benchup/internal/events"
	"benchup/internal/instance"
	"benchup/internal/logging"
	"benchup/internal/provider"
	"benchup/internal/provision"
	"benchup/internal/remote"
	"benchup/internal/syncer"
	"benchup/internal/tui"
	"benchup/internal/web"
	"benchup/internal/workspace"
)

var version = "dev"

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)

	configDir := flag.StringP("config-dir", "c", "", "config directory (default: ~/.config/benchup)")

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(version, *configDir)
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	app := cli.BuildApp(version, *configDir)

	if app.Execute(flag.Args()) {
		runTUI(*configDir)
	}
}

// loadConfig loads the configuration from the specified directory or default location.
func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

// runTUI launches the interactive TUI.
func runTUI(configDir string) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dataDir := cli.ResolveDataDir(configDir)

	// Acquire single-instance lock
	fl, err := instance.Lock(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer instance.Cleanup(dataDir, fl)

	logPath := filepath.Join(dataDir, "benchup.log")

	logManager, err := logging.NewManager(logging.Config{
		FilePath:       logPath,
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logManager.Close() }()

	appLogger := logManager.For("app")
	appLogger.Info("application starting")

	flow := &workbenchFlow{cfg: cfg, dataDir: dataDir, logs: logManager}
	model := tui.NewModel(cfg, dataDir, flow, logManager.Entries())

	p := tea.NewProgram(model, tea.WithAltScreen())

	km := remote.NewKeyManager(dataDir)

	// Web server always starts (ephemeral port if not configured)
	webServer := web.New(
		web.Config{Bind: cfg.Web.Bind, Port: cfg.Web.Port},
		cfg,
		dataDir,
		func(msg any) { p.Send(msg) },
		logManager,
		flow.Sync,
		km.PrivateKeyPath(),
	)
	ln, err := webServer.Listen()
	if err != nil {
		appLogger.Error("web server listen error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Write port file for CLI discovery
	if err := instance.WritePort(dataDir, webServer.Addr()); err != nil {
		appLogger.Error("failed to write port file", "error", err)
	}

	webURL := fmt.Sprintf("http://%s", webServer.Addr())
	go func() {
		p.Send(events.WebListenURLMsg{URL: webURL})
	}()

	go func() {
		if err := webServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			appLogger.Error("web server error", "error", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webServer.Shutdown(ctx); err != nil {
			appLogger.Error("web server shutdown error", "error", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		appLogger.Error("application exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}

	appLogger.Info("application stopped")
}

// workbenchFlow wires the pipeline stages for the TUI and web server.
type workbenchFlow struct {
	cfg     config.Config
	dataDir string
	logs    logging.Provider
}

// Launch creates the VM, imports the ssh key, and records the result.
func (f *workbenchFlow) Launch(ctx context.Context) (instance.State, error) {
	if err := f.cfg.ValidateLaunch(); err != nil {
		return instance.State{}, err
	}

	km := remote.NewKeyManager(f.dataDir)
	if err := km.EnsureKeyPair(); err != nil {
		return instance.State{}, err
	}

	prov, err := provider.New(ctx, f.cfg.AWS, f.logs.For("provider"))
	if err != nil {
		return instance.State{}, err
	}

	if f.cfg.AWS.KeyName != "" {
		pub, err := km.PublicKey()
		if err != nil {
			return instance.State{}, err
		}
		if err := prov.EnsureKeyPair(ctx, pub); err != nil {
			return instance.State{}, err
		}
	}

	inst, err := prov.Launch(ctx)
	if inst.ID == "" {
		return instance.State{}, err
	}

	st := instance.State{
		InstanceID: inst.ID,
		Address:    inst.Address(),
		Region:     f.cfg.AWS.Region,
		SSHUser:    f.cfg.AWS.SSHUser,
		LaunchedAt: time.Now().UTC(),
	}
	if saveErr := instance.SaveState(f.dataDir, st); saveErr != nil && err == nil {
		err = saveErr
	}
	return st, err
}

// Sync pushes every resolved project folder into the guest.
func (f *workbenchFlow) Sync(ctx context.Context) error {
	st, ok, err := instance.LoadState(f.dataDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no workbench VM recorded")
	}

	var folders []syncer.Folder
	for _, ws := range workspace.ResolvedPaths(f.cfg.ResolveWorkspaceRoot(), f.cfg.Projects) {
		folders = append(folders, syncer.Folder{
			Name:     ws.Project.Name,
			LocalDir: ws.Path,
			GuestDir: ws.Project.GuestDir(),
		})
	}
	if len(folders) == 0 {
		return nil
	}

	km := remote.NewKeyManager(f.dataDir)
	target := syncer.Target{Host: st.Address, User: st.SSHUser, KeyPath: km.PrivateKeyPath()}
	return syncer.New(target, f.cfg.Sync, f.logs.For("sync")).PushAll(ctx, folders)
}

// Provision runs the provisioning script on the guest.
func (f *workbenchFlow) Provision(ctx context.Context) error {
	st, ok, err := instance.LoadState(f.dataDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no workbench VM recorded")
	}

	km := remote.NewKeyManager(f.dataDir)
	logger := f.logs.For("provision")
	client := remote.NewClient(st.Address, st.SSHUser, km.PrivateKeyPath(), logger)

	if err := client.WaitReady(ctx); err != nil {
		return fmt.Errorf("guest not reachable: %w", err)
	}

	script := provision.BuildScript(f.cfg.Provision, f.cfg.Projects)
	return provision.NewRunner(client, logger).Run(ctx, script)
}
