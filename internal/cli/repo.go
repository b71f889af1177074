// pattern: Imperative Shell
package cli

import (
	"fmt"
	"os"

	"benchup/internal/workspace"
)

// RegisterRepoCommands registers the repo command group commands.
func RegisterRepoCommands(group *Group, configDir string) {
	group.AddCommand(&Command{
		Name:    "list",
		Summary: "Show resolution state for every manifest project",
		Usage:   "Usage: benchup repo list",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			statuses := workspace.InspectAll(cfg.ResolveWorkspaceRoot(), cfg.Projects)
			printWorkspaceStatuses(os.Stdout, statuses)
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "clone",
		Summary: "Clone a project from its remote into the workspace",
		Usage:   "Usage: benchup repo clone <name>",
		Run: func(args []string) error {
			if len(args) < 1 {
				fmt.Fprintf(os.Stderr, "Usage: benchup repo clone <name>\n")
				os.Exit(1)
			}
			cfg := loadConfig(configDir)
			project, ok := cfg.FindProject(args[0])
			if !ok {
				fatalf("unknown project %q", args[0])
			}
			if err := workspace.Clone(cfg.ResolveWorkspaceRoot(), project); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Cloned %s from %s.\n", project.Name, project.RemoteURL())
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "use",
		Summary: "Link an existing local checkout into the workspace",
		Usage:   "Usage: benchup repo use <name> <path>",
		Run: func(args []string) error {
			if len(args) < 2 {
				fmt.Fprintf(os.Stderr, "Usage: benchup repo use <name> <path>\n")
				os.Exit(1)
			}
			cfg := loadConfig(configDir)
			project, ok := cfg.FindProject(args[0])
			if !ok {
				fatalf("unknown project %q", args[0])
			}
			if err := workspace.UseLocal(cfg.ResolveWorkspaceRoot(), project, args[1]); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Using %s for %s.\n", args[1], project.Name)
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "skip",
		Summary: "Mark a project as deliberately absent",
		Usage:   "Usage: benchup repo skip <name>",
		Run: func(args []string) error {
			if len(args) < 1 {
				fmt.Fprintf(os.Stderr, "Usage: benchup repo skip <name>\n")
				os.Exit(1)
			}
			cfg := loadConfig(configDir)
			project, ok := cfg.FindProject(args[0])
			if !ok {
				fatalf("unknown project %q", args[0])
			}
			if err := workspace.Skip(cfg.ResolveWorkspaceRoot(), project); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Skipped %s.\n", project.Name)
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "unskip",
		Summary: "Remove a project's skip marker",
		Usage:   "Usage: benchup repo unskip <name>",
		Run: func(args []string) error {
			if len(args) < 1 {
				fmt.Fprintf(os.Stderr, "Usage: benchup repo unskip <name>\n")
				os.Exit(1)
			}
			cfg := loadConfig(configDir)
			project, ok := cfg.FindProject(args[0])
			if !ok {
				fatalf("unknown project %q", args[0])
			}
			if err := workspace.Unskip(cfg.ResolveWorkspaceRoot(), project); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Unskipped %s.\n", project.Name)
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "scan",
		Summary: "Find existing checkouts under the configured scan paths",
		Usage:   "Usage: benchup repo scan",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			candidates := workspace.NewScanner().ScanAll(cfg.ResolveScanPaths(), cfg.Projects)
			if len(candidates) == 0 {
				fmt.Println("No matching checkouts found.")
				return nil
			}
			for _, c := range candidates {
				fmt.Printf("  %-20s %s (%s)\n", c.Name, c.Path, c.Branch)
			}
			return nil
		},
	})
}
