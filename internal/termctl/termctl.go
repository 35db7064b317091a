// Package termctl owns exclusive access to the controlling terminal's
// raw mode, guaranteeing restoration on every exit path: normal return,
// signal, or panic.
package termctl

import (
	"fmt"
	"sync"

	"golang.org/x/term"
)

// Session represents one raw-mode acquisition of a terminal fd.
type Session struct {
	fd       int
	original *term.State
	mu       sync.Mutex
	released bool
}

// Acquire puts fd into raw mode, remembering the prior state. If fd is
// not a terminal, Acquire still succeeds but Release is then a no-op —
// callers do not need to special-case piped stdin.
func Acquire(fd int) (*Session, error) {
	if !term.IsTerminal(fd) {
		return &Session{fd: fd, released: true}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("termctl: enter raw mode: %w", err)
	}
	return &Session{fd: fd, original: state}, nil
}

// Release restores the terminal to its pre-Acquire state. Safe to call
// more than once, from a deferred call, a signal handler, and a
// panic-recovery path alike.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	if s.original == nil {
		return nil
	}
	if err := term.Restore(s.fd, s.original); err != nil {
		return fmt.Errorf("termctl: restore terminal: %w", err)
	}
	return nil
}

// Size reports the current terminal dimensions in columns, rows.
func Size(fd int) (cols, rows int, err error) {
	cols, rows, err = term.GetSize(fd)
	if err != nil {
		return 0, 0, fmt.Errorf("termctl: get size: %w", err)
	}
	return cols, rows, nil
}
