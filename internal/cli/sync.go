// pattern: Imperative Shell
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"benchup/internal/config"
	"benchup/internal/instance"
	"benchup/internal/logging"
	"benchup/internal/remote"
	"benchup/internal/syncer"
	"benchup/internal/workspace"
)

// syncFolders builds the rsync folder list from resolved projects.
func syncFolders(cfg config.Config) []syncer.Folder {
	var folders []syncer.Folder
	for _, st := range workspace.ResolvedPaths(cfg.ResolveWorkspaceRoot(), cfg.Projects) {
		folders = append(folders, syncer.Folder{
			Name:     st.Project.Name,
			LocalDir: st.Path,
			GuestDir: st.Project.GuestDir(),
		})
	}
	return folders
}

// newSyncer builds a syncer pointed at the recorded workbench VM.
func newSyncer(cfg config.Config, st instance.State, dataDir string) *syncer.Syncer {
	km := remote.NewKeyManager(dataDir)
	target := syncer.Target{
		Host:    st.Address,
		User:    st.SSHUser,
		KeyPath: km.PrivateKeyPath(),
	}
	logger := logging.ConsoleLogger(os.Stderr, "sync", cfg.LogLevel)
	return syncer.New(target, cfg.Sync, logger)
}

// RegisterSyncCommands registers the sync command group commands.
func RegisterSyncCommands(group *Group, configDir string) {
	group.AddCommand(&Command{
		Name:    "push",
		Summary: "Mirror resolved project folders into the guest",
		Usage:   "Usage: benchup sync push",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			dataDir := ResolveDataDir(configDir)
			st := loadWorkbench(dataDir)

			folders := syncFolders(cfg)
			if len(folders) == 0 {
				fatalf("no resolved projects to sync (run 'benchup repo list')")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if err := newSyncer(cfg, st, dataDir).PushAll(ctx, folders); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Synced %d project(s) to %s.\n", len(folders), st.Address)
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "watch",
		Summary: "Watch resolved projects and push on change",
		Usage:   "Usage: benchup sync watch",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			dataDir := ResolveDataDir(configDir)
			st := loadWorkbench(dataDir)

			folders := syncFolders(cfg)
			if len(folders) == 0 {
				fatalf("no resolved projects to sync")
			}

			logger := logging.ConsoleLogger(os.Stderr, "watch", cfg.LogLevel)
			watcher, err := syncer.NewWatcher(0, logger)
			if err != nil {
				fatalf("%v", err)
			}
			defer watcher.Close()

			for _, f := range folders {
				if err := watcher.Add(f.LocalDir); err != nil {
					fatalf("watching %s: %v", f.LocalDir, err)
				}
			}

			sync := newSyncer(cfg, st, dataDir)

			// Initial push so the guest starts in sync.
			ctx := context.Background()
			if err := sync.PushAll(ctx, folders); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Watching %d project(s); pushing to %s on change. Ctrl-C to stop.\n", len(folders), st.Address)

			done := make(chan struct{})
			go watcher.Run(done, func() {
				pushCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
				defer cancel()
				if err := sync.PushAll(pushCtx, folders); err != nil {
					logger.Error("push failed", "error", err)
				}
			})

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			close(done)
			return nil
		},
	})
}
