// pattern: Imperative Shell
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"benchup/internal/logging"
	"benchup/internal/provision"
	"benchup/internal/remote"
)

// RegisterProvisionCommands registers the provision command group commands.
func RegisterProvisionCommands(group *Group, configDir string) {
	group.AddCommand(&Command{
		Name:    "run",
		Summary: "Install the toolchain and run configured steps in the guest",
		Usage:   "Usage: benchup provision run",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			dataDir := ResolveDataDir(configDir)
			st := loadWorkbench(dataDir)
			km := remote.NewKeyManager(dataDir)

			script := provision.BuildScript(cfg.Provision, cfg.Projects)

			logger := logging.ConsoleLogger(os.Stderr, "provision", cfg.LogLevel)
			client := remote.NewClient(st.Address, st.SSHUser, km.PrivateKeyPath(), logger)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			if err := client.WaitReady(ctx); err != nil {
				fatalf("guest not reachable: %v", err)
			}
			if err := provision.NewRunner(client, logger).Run(ctx, script); err != nil {
				fatalf("%v", err)
			}
			fmt.Println("Provisioning completed.")
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "script",
		Summary: "Print the provisioning script without running it",
		Usage:   "Usage: benchup provision script",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			fmt.Print(provision.BuildScript(cfg.Provision, cfg.Projects))
			return nil
		},
	})
}
