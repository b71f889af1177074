// pattern: Imperative Shell
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"benchup/internal/logging"
	"benchup/internal/provision"
	"benchup/internal/remote"
	"benchup/internal/workspace"
)

// runUpCommand is the full flow: verify every project is resolved or
// skipped, launch the VM, push project folders, and provision the
// guest. Fails fast at the first error.
func runUpCommand(configDir string, args []string) error {
	fs := flag.NewFlagSet("up", flag.ContinueOnError)
	skipUnresolved := fs.Bool("skip-unresolved", false, "mark unresolved projects as skipped instead of failing")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Usage: benchup up [--skip-unresolved]\n")
		os.Exit(1)
	}

	cfg := loadConfig(configDir)
	dataDir := ResolveDataDir(configDir)
	root := cfg.ResolveWorkspaceRoot()

	var unresolved []string
	for _, st := range workspace.InspectAll(root, cfg.Projects) {
		if st.State == workspace.StateUnresolved {
			unresolved = append(unresolved, st.Project.Name)
		}
	}
	if len(unresolved) > 0 {
		if !*skipUnresolved {
			fatalf("unresolved projects: %s (resolve with 'benchup repo', or pass --skip-unresolved)",
				strings.Join(unresolved, ", "))
		}
		for _, name := range unresolved {
			project, _ := cfg.FindProject(name)
			if err := workspace.Skip(root, project); err != nil {
				fatalf("skipping %s: %v", name, err)
			}
			fmt.Printf("Skipped %s.\n", name)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Minute)
	defer cancel()

	fmt.Println("Launching workbench VM...")
	st, err := launchWorkbench(ctx, cfg, dataDir)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Workbench %s running at %s.\n", st.InstanceID, st.Address)

	km := remote.NewKeyManager(dataDir)
	logger := logging.ConsoleLogger(os.Stderr, "up", cfg.LogLevel)
	client := remote.NewClient(st.Address, st.SSHUser, km.PrivateKeyPath(), logger)

	fmt.Println("Waiting for ssh...")
	if err := client.WaitReady(ctx); err != nil {
		fatalf("guest not reachable: %v", err)
	}

	folders := syncFolders(cfg)
	if len(folders) > 0 {
		fmt.Printf("Syncing %d project(s)...\n", len(folders))
		if err := newSyncer(cfg, st, dataDir).PushAll(ctx, folders); err != nil {
			fatalf("%v", err)
		}
	}

	fmt.Println("Provisioning...")
	script := provision.BuildScript(cfg.Provision, cfg.Projects)
	if err := provision.NewRunner(client, logger).Run(ctx, script); err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Workbench ready: ssh with 'benchup vm ssh'.\n")
	return nil
}
