// pattern: Imperative Shell
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"benchup/internal/config"
	"benchup/internal/instance"
	"benchup/internal/workspace"
)

// ResolveDataDir returns the data directory for lock/port/state files.
// If configDir is specified, uses that; otherwise uses ~/.config/benchup.
func ResolveDataDir(configDir string) string {
	if configDir != "" {
		return configDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "benchup")
	}
	return filepath.Join(home, ".config", "benchup")
}

// loadConfig reads the manifest, preferring configDir when set.
// Config errors are fatal for CLI commands.
func loadConfig(configDir string) config.Config {
	var cfg config.Config
	var err error
	if configDir != "" {
		cfg, err = config.LoadFromDir(configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("config: %v", err)
	}
	return cfg
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// BuildApp creates and configures the CLI application with all commands and groups.
func BuildApp(version string, configDir string) *App {
	app := NewApp(version)

	app.AddCommand(&Command{
		Name:    "up",
		Summary: "Resolve repos, launch the workbench VM, sync and provision",
		Usage:   "Usage: benchup up [--skip-unresolved]",
		Run: func(args []string) error {
			return runUpCommand(configDir, args)
		},
	})

	app.AddCommand(&Command{
		Name:    "status",
		Summary: "Show workspace and workbench status",
		Usage:   "Usage: benchup status",
		Run: func(args []string) error {
			return runStatusCommand(configDir)
		},
	})

	app.AddCommand(&Command{
		Name:    "destroy",
		Summary: "Terminate the workbench VM and clear its record",
		Usage:   "Usage: benchup destroy",
		Run: func(args []string) error {
			return runDestroyCommand(configDir)
		},
	})

	app.AddCommand(&Command{
		Name:    "cleanup",
		Summary: "Remove stale lock/port files from a crashed instance",
		Usage:   "Usage: benchup cleanup",
		Run: func(args []string) error {
			return runCleanupCommand(configDir)
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: benchup version",
		Run: func(args []string) error {
			fmt.Println(version)
			return nil
		},
	})

	repoGroup := app.AddGroup("repo", "Resolve source repositories")
	RegisterRepoCommands(repoGroup, configDir)

	vmGroup := app.AddGroup("vm", "Manage the workbench VM")
	RegisterVMCommands(vmGroup, configDir)

	syncGroup := app.AddGroup("sync", "Mirror project folders into the guest")
	RegisterSyncCommands(syncGroup, configDir)

	provisionGroup := app.AddGroup("provision", "Install the guest toolchain and run steps")
	RegisterProvisionCommands(provisionGroup, configDir)

	return app
}

// runStatusCommand prefers a running benchup instance; falls back to
// reading local workspace and workbench state directly.
func runStatusCommand(configDir string) error {
	dataDir := ResolveDataDir(configDir)

	if baseURL, err := instance.Discover(dataDir); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := instance.NewClient(baseURL).Status(ctx)
		if err != nil {
			fatalf("fetching status: %v", err)
		}
		printDashboardStatus(os.Stdout, st)
		return nil
	}

	cfg := loadConfig(configDir)
	statuses := workspace.InspectAll(cfg.ResolveWorkspaceRoot(), cfg.Projects)
	printWorkspaceStatuses(os.Stdout, statuses)

	st, ok, err := instance.LoadState(dataDir)
	if err != nil {
		fatalf("%v", err)
	}
	if !ok {
		fmt.Println("\nWorkbench: not launched")
		return nil
	}
	fmt.Printf("\nWorkbench: %s at %s (%s, launched %s)\n",
		st.InstanceID, st.Address, st.Region, st.LaunchedAt.Format(time.RFC3339))
	return nil
}

// runDestroyCommand terminates the recorded workbench VM.
func runDestroyCommand(configDir string) error {
	dataDir := ResolveDataDir(configDir)
	cfg := loadConfig(configDir)

	st, ok, err := instance.LoadState(dataDir)
	if err != nil {
		fatalf("%v", err)
	}
	if !ok {
		fmt.Println("No workbench VM recorded; nothing to destroy.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	prov := newProvider(ctx, cfg)
	if err := prov.Terminate(ctx, st.InstanceID); err != nil {
		fatalf("terminating %s: %v", st.InstanceID, err)
	}
	if err := instance.ClearState(dataDir); err != nil {
		fatalf("clearing workbench record: %v", err)
	}
	fmt.Printf("Terminated %s.\n", st.InstanceID)
	return nil
}

// runCleanupCommand removes stale lock and port files from a crashed instance.
func runCleanupCommand(configDir string) error {
	dataDir := ResolveDataDir(configDir)

	// Try to acquire the lock to verify no instance is actually running
	fl, err := instance.Lock(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: a benchup instance appears to be running. Stop it first.\n")
		os.Exit(1)
	}
	// We got the lock — no instance is running. Clean up and release.
	instance.Cleanup(dataDir, fl)
	fmt.Println("Cleaned up stale lock and port files.")
	return nil
}
