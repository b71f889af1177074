// pattern: Imperative Shell

package provision

import (
	"context"
	"errors"
	"fmt"

	"benchup/internal/logging"
	"benchup/internal/remote"
)

// guest abstracts the ssh client for tests.
type guest interface {
	Upload(ctx context.Context, content []byte, remotePath string, mode string) error
	Run(ctx context.Context, command string, onLine remote.LineFunc) error
}

// Runner ships the provisioning script to the guest and executes it,
// streaming output into the structured log.
type Runner struct {
	guest  guest
	logger *logging.Logger
}

// NewRunner creates a Runner over an ssh client.
func NewRunner(g guest, logger *logging.Logger) *Runner {
	return &Runner{guest: g, logger: logger}
}

// Run uploads and executes the script under sudo. Remote stdout lines
// log at info, stderr at warn. A nonzero remote exit is returned with
// the exit code.
func (r *Runner) Run(ctx context.Context, script string) error {
	if err := r.guest.Upload(ctx, []byte(script), ScriptPath, "755"); err != nil {
		return fmt.Errorf("uploading provisioning script: %w", err)
	}

	r.logger.Info("running provisioning script", "path", ScriptPath)

	cmd := fmt.Sprintf("sudo -E bash %s", ScriptPath)
	err := r.guest.Run(ctx, cmd, func(stream, line string) {
		if stream == "stderr" {
			r.logger.Warn(line, "stream", "stderr")
			return
		}
		r.logger.Info(line, "stream", "stdout")
	})
	if err != nil {
		var exitErr *remote.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("provisioning failed with exit code %d", exitErr.Code)
		}
		return fmt.Errorf("provisioning: %w", err)
	}

	r.logger.Info("provisioning complete")
	return nil
}
