// pattern: Imperative Shell

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"

	"github.com/coder/websocket"
	"github.com/creack/pty"

	"benchup/internal/instance"
)

// ResizeMessage is sent from the browser when the terminal viewport changes.
type ResizeMessage struct {
	Type string `json:"type"` // "resize"
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// HandleTerminal upgrades to websocket and bridges PTY I/O for an ssh
// shell on the workbench VM.
func (s *Server) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	st, ok, err := instance.LoadState(s.dataDir)
	if err != nil {
		http.Error(w, "failed to read workbench state", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no workbench VM launched", http.StatusNotFound)
		return
	}

	// Upgrade to websocket — IMPORTANT: do NOT use r.Context() after this.
	// Restrict to localhost origins to prevent cross-origin WebSocket attacks.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"127.0.0.1:*", "localhost:*"},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(1 << 20) // 1 MB read limit

	cmd := exec.Command(
		"ssh",
		"-i", s.keyPath,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-t",
		fmt.Sprintf("%s@%s", st.SSHUser, st.Address),
	)
	cmd.Env = append(cmd.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")

	// Start command with PTY
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		s.logger.Error("pty start failed", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "terminal failed to start")
		return
	}
	defer func() { _ = ptmx.Close() }()
	defer func() { _ = cmd.Wait() }()

	s.logger.Info("terminal connected", "host", st.Address, "user", st.SSHUser)

	ctx := context.Background()

	// PTY output → WebSocket (binary frames)
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := ptmx.Read(buf)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageBinary, buf[:n]); err != nil {
				return
			}
		}
	}()

	// WebSocket → PTY input (binary = keystrokes, text = control messages)
	go func() {
		for {
			msgType, data, err := conn.Read(ctx)
			if err != nil {
				// Websocket closed — close PTY to stop the output goroutine
				_ = ptmx.Close()
				return
			}
			if msgType == websocket.MessageText {
				var msg ResizeMessage
				if json.Unmarshal(data, &msg) == nil && msg.Type == "resize" {
					_ = pty.Setsize(ptmx, &pty.Winsize{Rows: msg.Rows, Cols: msg.Cols})
					continue
				}
			}
			// Write raw input to PTY; errors are non-fatal (process may have exited)
			_, _ = ptmx.Write(data)
		}
	}()

	// Block until PTY output goroutine exits (process exited or PTY closed)
	<-done

	s.logger.Info("terminal disconnected", "host", st.Address)

	_ = conn.Close(websocket.StatusNormalClosure, "terminal closed")
}
