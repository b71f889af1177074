// pattern: Imperative Shell

package syncer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"benchup/internal/config"
	"benchup/internal/logging"
)

// Target identifies the guest end of the mirror.
type Target struct {
	Host    string
	User    string
	KeyPath string
}

// runFunc abstracts command execution for tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Syncer mirrors project directories into the guest, one way, via rsync
// over ssh.
type Syncer struct {
	target Target
	cfg    config.SyncConfig
	logger *logging.Logger
	run    runFunc
}

// New creates a Syncer for the given guest target.
func New(target Target, cfg config.SyncConfig, logger *logging.Logger) *Syncer {
	return &Syncer{
		target: target,
		cfg:    cfg,
		logger: logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// NewWithRunner creates a Syncer with an injected runner, for tests.
func NewWithRunner(target Target, cfg config.SyncConfig, logger *logging.Logger, run runFunc) *Syncer {
	s := New(target, cfg, logger)
	s.run = run
	return s
}

// BuildArgs assembles the rsync argument list for one project mirror.
// The trailing slash on the source copies contents, not the directory
// itself. --rsync-path creates the guest directory on first sync.
func BuildArgs(localDir, guestDir string, target Target, cfg config.SyncConfig) []string {
	args := []string{"-az"}
	if cfg.Delete {
		args = append(args, "--delete")
	}
	for _, ex := range cfg.Excludes {
		args = append(args, "--exclude="+ex)
	}

	sshCmd := fmt.Sprintf(
		"ssh -i %s -o StrictHostKeyChecking=no -o UserKnownHostsFile=/dev/null",
		target.KeyPath,
	)
	args = append(args,
		"-e", sshCmd,
		"--rsync-path", fmt.Sprintf("mkdir -p %s && rsync", guestDir),
		strings.TrimSuffix(localDir, "/")+"/",
		fmt.Sprintf("%s@%s:%s/", target.User, target.Host, guestDir),
	)
	return args
}

// Push mirrors one project directory into the guest. A failed rsync
// surfaces the captured output.
func (s *Syncer) Push(ctx context.Context, localDir, guestDir string) error {
	args := BuildArgs(localDir, guestDir, s.target, s.cfg)
	s.logger.Info("syncing folder", "local", localDir, "guest", guestDir)

	output, err := s.run(ctx, "rsync", args...)
	if err != nil {
		return fmt.Errorf("rsync %s: %s: %w", localDir, strings.TrimSpace(string(output)), err)
	}

	s.logger.Debug("sync complete", "local", localDir)
	return nil
}

// PushAll mirrors each resolved project in order, stopping at the first
// failure.
func (s *Syncer) PushAll(ctx context.Context, folders []Folder) error {
	for _, f := range folders {
		if err := s.Push(ctx, f.LocalDir, f.GuestDir); err != nil {
			return err
		}
	}
	return nil
}

// Folder pairs a workstation directory with its guest destination.
type Folder struct {
	Name     string
	LocalDir string
	GuestDir string
}
