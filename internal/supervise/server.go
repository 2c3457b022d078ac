package supervise

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Server is one running model-serving subprocess. The process handle is
// owned here; no other component signals it directly.
type Server struct {
	ID      string
	Model   string
	GPUs    []int
	Port    int
	BaseURL string
	PID     int

	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
	tail    *tailBuffer
}

// Exited reports whether the subprocess has terminated.
func (srv *Server) Exited() bool {
	select {
	case <-srv.done:
		return true
	default:
		return false
	}
}

// OutputTail returns the captured tail of the server's combined output.
func (srv *Server) OutputTail() string { return srv.tail.String() }

// Terminate signals the server's whole process group with SIGTERM, waits a
// bounded grace period, then force-kills the group. Safe to call on an
// already-exited server.
func (s *Supervisor) Terminate(srv *Server) error {
	if srv == nil || srv.cmd == nil || srv.cmd.Process == nil {
		return nil
	}
	if srv.Exited() {
		return nil
	}
	log.Info().
		Str("model", srv.Model).
		Int("pid", srv.PID).
		Msg("terminating server process group")

	// Negative pid addresses the whole group, including descendant workers.
	if err := syscall.Kill(-srv.PID, syscall.SIGTERM); err != nil {
		// Group may already be gone; fall through to the direct signal.
		_ = srv.cmd.Process.Signal(syscall.SIGTERM)
	}
	select {
	case <-srv.done:
		return nil
	case <-time.After(s.cfg.GraceTimeout):
	}

	log.Warn().
		Str("model", srv.Model).
		Int("pid", srv.PID).
		Dur("grace", s.cfg.GraceTimeout).
		Msg("grace period elapsed, force killing process group")
	s.killGroup(srv)
	return nil
}

// killGroup force-kills the process group without waiting for grace.
func (s *Supervisor) killGroup(srv *Server) {
	if srv == nil || srv.cmd == nil || srv.cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-srv.PID, syscall.SIGKILL); err != nil {
		_ = srv.cmd.Process.Kill()
	}
	select {
	case <-srv.done:
	case <-time.After(2 * time.Second):
	}
}
