// pattern: Imperative Shell
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"benchup/internal/config"
	"benchup/internal/instance"
	"benchup/internal/logging"
	"benchup/internal/process"
	"benchup/internal/provider"
	"benchup/internal/remote"
)

// newProvider builds an EC2 provider logging to stderr.
func newProvider(ctx context.Context, cfg config.Config) *provider.Provider {
	logger := logging.ConsoleLogger(os.Stderr, "provider", cfg.LogLevel)
	prov, err := provider.New(ctx, cfg.AWS, logger)
	if err != nil {
		fatalf("aws: %v", err)
	}
	return prov
}

// launchWorkbench launches the VM, records it, and returns its state.
// Shared by 'vm launch' and 'up'.
func launchWorkbench(ctx context.Context, cfg config.Config, dataDir string) (instance.State, error) {
	if err := cfg.ValidateLaunch(); err != nil {
		return instance.State{}, err
	}

	km := remote.NewKeyManager(dataDir)
	if err := km.EnsureKeyPair(); err != nil {
		return instance.State{}, err
	}

	prov := newProvider(ctx, cfg)

	if cfg.AWS.KeyName != "" {
		pub, err := km.PublicKey()
		if err != nil {
			return instance.State{}, err
		}
		if err := prov.EnsureKeyPair(ctx, pub); err != nil {
			return instance.State{}, err
		}
	}

	inst, err := prov.Launch(ctx)
	if inst.ID != "" {
		// Record the instance even when the running wait failed, so
		// destroy can still find it.
		st := instance.State{
			InstanceID: inst.ID,
			Address:    inst.Address(),
			Region:     cfg.AWS.Region,
			SSHUser:    cfg.AWS.SSHUser,
			LaunchedAt: time.Now().UTC(),
		}
		if saveErr := instance.SaveState(dataDir, st); saveErr != nil && err == nil {
			err = saveErr
		}
		return st, err
	}
	return instance.State{}, err
}

// loadWorkbench reads the recorded VM or exits with guidance.
func loadWorkbench(dataDir string) instance.State {
	st, ok, err := instance.LoadState(dataDir)
	if err != nil {
		fatalf("%v", err)
	}
	if !ok {
		fatalf("no workbench VM recorded (run 'benchup vm launch' first)")
	}
	return st
}

// RegisterVMCommands registers the vm command group commands.
func RegisterVMCommands(group *Group, configDir string) {
	group.AddCommand(&Command{
		Name:    "launch",
		Summary: "Launch the workbench VM and wait until it is running",
		Usage:   "Usage: benchup vm launch",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			dataDir := ResolveDataDir(configDir)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			st, err := launchWorkbench(ctx, cfg, dataDir)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Workbench %s running at %s.\n", st.InstanceID, st.Address)
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "status",
		Summary: "Query the workbench VM state from AWS",
		Usage:   "Usage: benchup vm status",
		Run: func(args []string) error {
			cfg := loadConfig(configDir)
			st := loadWorkbench(ResolveDataDir(configDir))

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			inst, err := newProvider(ctx, cfg).Status(ctx, st.InstanceID)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("%s  %s  %s\n", inst.ID, inst.State, inst.Address())
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "terminate",
		Summary: "Terminate the workbench VM",
		Usage:   "Usage: benchup vm terminate",
		Run: func(args []string) error {
			return runDestroyCommand(configDir)
		},
	})

	group.AddCommand(&Command{
		Name:    "ssh",
		Summary: "Open an interactive shell on the workbench VM",
		Usage:   "Usage: benchup vm ssh [command...]",
		Run: func(args []string) error {
			dataDir := ResolveDataDir(configDir)
			st := loadWorkbench(dataDir)
			km := remote.NewKeyManager(dataDir)

			sshArgs := []string{
				"-i", km.PrivateKeyPath(),
				"-o", "StrictHostKeyChecking=no",
				"-o", "UserKnownHostsFile=/dev/null",
				fmt.Sprintf("%s@%s", st.SSHUser, st.Address),
			}
			sshArgs = append(sshArgs, args...)

			cmd := exec.Command("ssh", sshArgs...)
			cmd.Stdin = os.Stdin
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					os.Exit(exitErr.ExitCode())
				}
				fatalf("ssh: %v", err)
			}
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "tunnel",
		Summary: "Keep a port forward open to the workbench VM",
		Usage:   "Usage: benchup vm tunnel <local-port>:<remote-port>",
		Run: func(args []string) error {
			if len(args) < 1 {
				fmt.Fprintf(os.Stderr, "Usage: benchup vm tunnel <local-port>:<remote-port>\n")
				os.Exit(1)
			}
			dataDir := ResolveDataDir(configDir)
			cfg := loadConfig(configDir)
			st := loadWorkbench(dataDir)
			km := remote.NewKeyManager(dataDir)

			forward, err := parseForward(args[0])
			if err != nil {
				fatalf("%v", err)
			}

			logger := logging.ConsoleLogger(os.Stderr, "tunnel", cfg.LogLevel)
			sup := process.NewSupervisor(process.Spec{
				Name:   "ssh-tunnel",
				Binary: "ssh",
				Args: []string{
					"-N",
					"-L", forward,
					"-i", km.PrivateKeyPath(),
					"-o", "StrictHostKeyChecking=no",
					"-o", "UserKnownHostsFile=/dev/null",
					"-o", "ExitOnForwardFailure=yes",
					"-o", "ServerAliveInterval=30",
					fmt.Sprintf("%s@%s", st.SSHUser, st.Address),
				},
				RestartOn:  process.Always,
				RetryDelay: 3 * time.Second,
			}, logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := sup.Start(ctx); err != nil {
				fatalf("starting tunnel: %v", err)
			}
			fmt.Printf("Forwarding %s via %s. Ctrl-C to stop.\n", forward, st.Address)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			sup.Stop()
			return nil
		},
	})
}

// parseForward turns "8080:80" into an ssh -L spec "8080:localhost:80".
// A full "local:host:remote" spec passes through unchanged.
func parseForward(arg string) (string, error) {
	parts := strings.Split(arg, ":")
	switch len(parts) {
	case 2:
		return fmt.Sprintf("%s:localhost:%s", parts[0], parts[1]), nil
	case 3:
		return arg, nil
	default:
		return "", fmt.Errorf("invalid forward spec %q (want local:remote)", arg)
	}
}
