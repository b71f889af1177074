// pattern: Imperative Shell

package process

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"benchup/internal/logging"
)

// RestartPolicy controls when a supervised process is relaunched.
type RestartPolicy int

const (
	Never     RestartPolicy = iota // run once
	OnFailure                      // relaunch on non-zero exit
	Always                         // relaunch unless Stop was called
)

// Spec describes the child process to supervise.
type Spec struct {
	Name       string
	Binary     string
	Args       []string
	RestartOn  RestartPolicy
	MaxRetries int
	RetryDelay time.Duration
}

// Supervisor keeps one child process running according to its policy.
// Used for the ssh tunnel, which drops whenever the guest network
// hiccups and needs to be re-established.
type Supervisor struct {
	spec   Spec
	logger *logging.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	running bool
	stopped bool
	done    chan struct{}
}

// NewSupervisor creates a supervisor for the given spec.
func NewSupervisor(spec Spec, logger *logging.Logger) *Supervisor {
	return &Supervisor{
		spec:   spec,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the supervision loop in a goroutine.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("supervisor: already running")
	}
	s.running = true
	s.mu.Unlock()

	go s.loop(ctx)
	return nil
}

// Stop terminates the child: SIGTERM, then SIGKILL after 5 seconds.
// Blocks until the loop has exited.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		<-s.done
		return
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		<-s.done
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(5 * time.Second):
	}

	s.mu.Lock()
	cmd = s.cmd
	s.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	<-s.done
}

// Running reports whether the supervision loop is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed when the loop exits (policy satisfied or Stop called).
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	retries := 0
	for {
		if s.isStopped() {
			return
		}

		exitCode := s.runOnce(ctx)

		if s.isStopped() {
			return
		}

		restart := false
		switch s.spec.RestartOn {
		case Always:
			restart = true
		case OnFailure:
			restart = exitCode != 0
		}
		if !restart {
			return
		}

		retries++
		if s.spec.MaxRetries > 0 && retries > s.spec.MaxRetries {
			s.logger.Error("giving up after max retries", "process", s.spec.Name, "retries", retries-1)
			return
		}

		delay := s.spec.RetryDelay
		if delay == 0 {
			delay = time.Second
		}
		s.logger.Info("relaunching process", "process", s.spec.Name, "attempt", retries, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Supervisor) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Supervisor) runOnce(ctx context.Context) int {
	cmd := exec.CommandContext(ctx, s.spec.Binary, s.spec.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.logger.Error("stdout pipe failed", "process", s.spec.Name, "error", err)
		return -1
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.logger.Error("stderr pipe failed", "process", s.spec.Name, "error", err)
		return -1
	}

	s.logger.Info("starting process", "process", s.spec.Name, "binary", s.spec.Binary)

	if err := cmd.Start(); err != nil {
		s.logger.Error("process failed to start", "process", s.spec.Name, "error", err)
		return -1
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go s.drain(stdout, "stdout", &wg)
	go s.drain(stderr, "stderr", &wg)
	wg.Wait()

	err = cmd.Wait()

	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			s.logger.Warn("process exited", "process", s.spec.Name, "exit_code", code)
			return code
		}
		s.logger.Info("process stopped", "process", s.spec.Name, "error", err)
		return -1
	}

	s.logger.Info("process exited cleanly", "process", s.spec.Name)
	return 0
}

func (s *Supervisor) drain(r interface{ Read([]byte) (int, error) }, stream string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug(scanner.Text(), "process", s.spec.Name, "stream", stream)
	}
}
