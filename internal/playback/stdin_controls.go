//go:build !windows

package playback

import (
	"golang.org/x/sys/unix"
)

// StdinControls polls a raw-mode stdin fd for a single control byte
// without blocking, matching handle_input_during_playback's
// `select.select([stdin], [], [], 0)` check.
type StdinControls struct {
	fd int
}

// NewStdinControls wraps fd (expected to already be in raw mode).
func NewStdinControls(fd int) *StdinControls {
	return &StdinControls{fd: fd}
}

// Poll returns ActionNone immediately unless a byte is waiting, in which
// case it reads and interprets exactly one: Ctrl-C aborts, Space toggles
// pause, Tab enters skip mode; any other byte is consumed and ignored.
func (s *StdinControls) Poll() Action {
	var rfds unix.FdSet
	fdSet(&rfds, s.fd)
	tv := unix.NsecToTimeval(0)

	n, err := unix.Select(s.fd+1, &rfds, nil, nil, &tv)
	if err != nil || n <= 0 || !fdIsSet(&rfds, s.fd) {
		return ActionNone
	}

	buf := make([]byte, 1)
	if _, err := unix.Read(s.fd, buf); err != nil {
		return ActionNone
	}

	switch buf[0] {
	case 3: // Ctrl-C
		return ActionAbort
	case 32: // Space
		return ActionTogglePause
	case 9: // Tab
		return ActionSkip
	default:
		return ActionNone
	}
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/wordBits] |= 1 << (uint(fd) % wordBits)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/wordBits]&(1<<(uint(fd)%wordBits)) != 0
}
