// pattern: Imperative Shell

package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"benchup/internal/logging"
)

const sshPort = 22

// LineFunc receives one line of remote output. Stream is "stdout" or
// "stderr".
type LineFunc func(stream, line string)

// Client runs commands on the guest over ssh with key auth.
type Client struct {
	addr    string
	user    string
	keyPath string
	logger  *logging.Logger
}

// NewClient creates a client for user@addr using the given private key.
func NewClient(addr, user, keyPath string, logger *logging.Logger) *Client {
	return &Client{addr: addr, user: user, keyPath: keyPath, logger: logger}
}

// dial opens an ssh connection. The guest is freshly launched with an
// unknown host key, so host key verification is skipped.
func (c *Client) dial(ctx context.Context) (*ssh.Client, error) {
	keyData, err := os.ReadFile(c.keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	cfg := &ssh.ClientConfig{
		User:            c.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	target := net.JoinHostPort(c.addr, fmt.Sprintf("%d", sshPort))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", target, err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// WaitReady retries the ssh handshake until the guest accepts it or ctx
// expires. A freshly launched instance takes a while to start sshd.
func (c *Client) WaitReady(ctx context.Context) error {
	attempt := 0
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			conn.Close()
			c.logger.Info("guest ssh ready", "address", c.addr, "attempts", attempt+1)
			return nil
		}
		attempt++
		c.logger.Debug("guest not ready yet", "address", c.addr, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for ssh on %s: %w (last: %v)", c.addr, ctx.Err(), err)
		case <-time.After(5 * time.Second):
		}
	}
}

// Run executes a command on the guest, streaming each output line to
// onLine. A nonzero remote exit becomes an *ExitError.
func (c *Client) Run(ctx context.Context, command string, onLine LineFunc) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer session.Close()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := session.Start(command); err != nil {
		return fmt.Errorf("starting %q: %w", command, err)
	}

	// Ctx cancellation tears the session down, which unblocks Wait.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-stop:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if onLine != nil {
				onLine("stdout", scanner.Text())
			}
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if onLine != nil {
				onLine("stderr", scanner.Text())
			}
		}
	}()
	wg.Wait()

	if err := session.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("remote command interrupted: %w", ctx.Err())
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Command: command, Code: exitErr.ExitStatus()}
		}
		return fmt.Errorf("remote command failed: %w", err)
	}
	return nil
}

// Upload writes content to a path on the guest through a shell pipe.
// Avoids an sftp dependency for the one small file we ship.
func (c *Client) Upload(ctx context.Context, content []byte, remotePath string, mode string) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	cmd := fmt.Sprintf("cat > %s && chmod %s %s", remotePath, mode, remotePath)
	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("starting upload: %w", err)
	}

	if _, err := stdin.Write(content); err != nil {
		return fmt.Errorf("writing %s: %w", remotePath, err)
	}
	if err := stdin.Close(); err != nil {
		return fmt.Errorf("closing upload stream: %w", err)
	}

	if err := session.Wait(); err != nil {
		return fmt.Errorf("upload to %s: %w", remotePath, err)
	}

	c.logger.Debug("uploaded file", "path", remotePath, "bytes", len(content))
	return nil
}

// ExitError reports a nonzero exit from a remote command.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("remote command exited %d: %s", e.Code, e.Command)
}
