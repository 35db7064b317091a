//go:build !windows

// Package ptyhost spawns a child shell attached to a pseudo-terminal,
// with a separate pipe carrying the child's stderr (a pty otherwise
// merges stdout and stderr onto one fd). The trade-off: bytes written
// on the stderr pipe never pass through the pty line discipline, so
// terminal-aware stderr output (progress bars, cursor control) may
// render differently than it would over a real tty.
package ptyhost

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// Host owns one child process attached to a pty, plus its stderr pipe.
type Host struct {
	ptmx       *os.File
	stderrRead *os.File
	cmd        *exec.Cmd

	mu     sync.Mutex
	closed bool
}

// Spawn validates shell as an executable regular file, then starts it
// attached to a new pty with stderr routed to a separate pipe.
func Spawn(shell string) (*Host, error) {
	if shell == "" {
		shell = os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
	}

	info, err := os.Stat(shell)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("ptyhost: shell %q not found or not executable", shell)
	}
	if info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("ptyhost: shell %q not found or not executable", shell)
	}

	stderrRead, stderrWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("ptyhost: create stderr pipe: %w", err)
	}

	// pty.Start wires all three of the child's standard streams to the
	// tty slave, which would merge stderr back into the pty. Open the
	// pty pair ourselves instead so stdin/stdout go to the tty and
	// stderr goes to our pipe, with Setctty making the tty the child's
	// controlling terminal the same way pty.Start does internally.
	ptmx, tty, err := pty.Open()
	if err != nil {
		stderrRead.Close()
		stderrWrite.Close()
		return nil, fmt.Errorf("ptyhost: open pty: %w", err)
	}

	cmd := exec.Command(shell)
	cmd.Env = os.Environ()
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = stderrWrite
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}

	if err := cmd.Start(); err != nil {
		tty.Close()
		ptmx.Close()
		stderrRead.Close()
		stderrWrite.Close()
		return nil, fmt.Errorf("ptyhost: start shell: %w", err)
	}
	tty.Close()
	stderrWrite.Close()

	pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80})

	return &Host{ptmx: ptmx, stderrRead: stderrRead, cmd: cmd}, nil
}

// Read reads pty output (the child's stdout, echoed input line discipline).
func (h *Host) Read(buf []byte) (int, error) {
	return h.ptmx.Read(buf)
}

// ReadStderr reads the child's stderr pipe.
func (h *Host) ReadStderr(buf []byte) (int, error) {
	return h.stderrRead.Read(buf)
}

// Write sends data to the child via the pty master (its stdin).
func (h *Host) Write(data []byte) (int, error) {
	return h.ptmx.Write(data)
}

// StderrFd returns the stderr pipe's file descriptor, for use in a
// select/poll readiness set.
func (h *Host) StderrFd() uintptr {
	return h.stderrRead.Fd()
}

// Fd returns the pty master's file descriptor.
func (h *Host) Fd() uintptr {
	return h.ptmx.Fd()
}

// SetWindowSize propagates a resize to the pty.
func (h *Host) SetWindowSize(rows, cols uint16) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("ptyhost: closed")
	}
	return pty.Setsize(h.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// WindowSize reports the pty's current dimensions.
func (h *Host) WindowSize() (rows, cols uint16, err error) {
	ws, err := pty.GetsizeFull(h.ptmx)
	if err != nil {
		return 0, 0, fmt.Errorf("ptyhost: get size: %w", err)
	}
	return ws.Rows, ws.Cols, nil
}

// PID returns the child process's PID, or 0 if it hasn't started.
func (h *Host) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// ForwardSignal delivers sig to the child's process group, the Go
// rendering of record_session.py forwarding SIGINT instead of letting it
// terminate the recorder process.
func (h *Host) ForwardSignal(sig syscall.Signal) error {
	pid := h.PID()
	if pid <= 0 {
		return nil
	}
	return syscall.Kill(-pid, sig)
}

// TryWait performs a non-blocking reap of the child, matching
// os.waitpid(pid, WNOHANG). exited is true once the child has exited.
func (h *Host) TryWait() (exited bool, err error) {
	var ws syscall.WaitStatus
	pid, err := syscall.Wait4(h.PID(), &ws, syscall.WNOHANG, nil)
	if err != nil {
		return false, err
	}
	return pid == h.PID() && pid != 0, nil
}

// Close terminates the child (SIGHUP to its process group) and releases
// the pty and pipe. Idempotent.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.ForwardSignal(syscall.SIGHUP)
	h.stderrRead.Close()
	if err := h.ptmx.Close(); err != nil {
		return err
	}
	if h.cmd != nil {
		h.cmd.Wait()
	}
	return nil
}
