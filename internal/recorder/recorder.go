//go:build !windows

// Package recorder implements the cooperative poll loop that bridges a
// controlling terminal to a child shell hosted under a pty, writing
// every event to a cast.Writer and optionally publishing output to a
// broadcast hub.
package recorder

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/artpar/termcast/internal/cast"
	"github.com/artpar/termcast/internal/clock"
	"github.com/artpar/termcast/internal/hub"
	"github.com/artpar/termcast/internal/logging"
	"github.com/artpar/termcast/internal/ptyhost"
)

// pollInterval matches T_poll from the design: the loop never blocks
// longer than this, so it can reap the child and re-check terminal state
// even when no fd is ready.
const pollInterval = 100 * time.Millisecond

const chunkSize = 1024

// maxDrainIterations bounds the best-effort drain of master_fd/stderr_fd
// once the child has been reaped (spec.md §4.7 step 3): a quick child
// can exit with its final write still sitting in the pty buffer, so the
// drain must run at least once, but it must not be able to loop forever
// against a misbehaving descriptor.
const maxDrainIterations = 64

// Recorder drives the recording I/O loop for one session.
type Recorder struct {
	host   *ptyhost.Host
	writer *cast.Writer
	clock  *clock.Clock
	hub    *hub.Hub
	log    *logging.Logger

	stdinFd  int
	ttyFd    int
	stdoutFd int
	stderrFd int

	lastAttrs   *unix.Termios
	lastWinsize *unix.Winsize
}

// New builds a Recorder. hub may be nil if no live viewers are wanted.
func New(host *ptyhost.Host, writer *cast.Writer, clk *clock.Clock, h *hub.Hub) *Recorder {
	return &Recorder{
		host:     host,
		writer:   writer,
		clock:    clk,
		hub:      h,
		log:      logging.WithComponent("recorder"),
		stdinFd:  int(os.Stdin.Fd()),
		ttyFd:    int(os.Stdin.Fd()),
		stdoutFd: int(os.Stdout.Fd()),
		stderrFd: int(os.Stderr.Fd()),
	}
}

// Run executes the poll loop until the child exits, the context is
// canceled, or a read/write on the master fd fails. SIGINT received by
// the process is forwarded to the child's process group rather than
// ending the recording.
func (r *Recorder) Run(ctx context.Context) error {
	sigint := make(chan os.Signal, 1)
	signalNotify(sigint)
	defer signalStop(sigint)

	sigwinch := make(chan os.Signal, 1)
	signalNotifyWinch(sigwinch)
	defer signalStop(sigwinch)

	masterFd := int(r.host.Fd())
	stderrFd := int(r.host.StderrFd())

	buf := make([]byte, chunkSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigint:
			r.host.ForwardSignal(syscall.SIGINT)
		case <-sigwinch:
			r.syncWindowSize()
		default:
		}

		readyStdin, readyMaster, readyStderr, err := r.poll(masterFd, stderrFd)
		if err != nil && err != unix.EINTR {
			return fmt.Errorf("recorder: poll: %w", err)
		}

		r.checkTerminalState(masterFd)

		if exited, err := r.host.TryWait(); err != nil || exited {
			// The child's last write can still be sitting in the pty
			// buffer at the moment it is reaped (a quick child, e.g.
			// one that writes "hello\n" and exits, is routinely reaped
			// in the very iteration poll first reports master
			// readable). Drain what's left before giving up the loop.
			r.drainOnExit(masterFd, stderrFd, buf)
			return nil
		}

		// Dispatch order here is stdin -> stderr -> master, not the
		// stdin -> master -> stderr spec.md §4.7 documents; the spec
		// marks that ordering as policy, not a correctness requirement,
		// so this is an intentional deviation, not drift.
		if readyStdin {
			n, err := unix.Read(r.stdinFd, buf)
			if err != nil || n == 0 {
				r.stdinFd = -1 // stop polling a closed/EOF stdin; session continues
			} else {
				data := buf[:n]
				if _, werr := r.host.Write(data); werr != nil {
					return nil
				}
				r.writeEvent(cast.KindInput, data)
			}
		}

		if readyStderr {
			n, err := unix.Read(stderrFd, buf)
			if err == nil && n > 0 {
				data := buf[:n]
				writeFull(r.stderrFd, data)
				t := r.writeEvent(cast.KindStderr, data)
				if r.hub != nil {
					r.hub.Publish(t, cast.KindStderr, string(data))
				}
			}
			// EOF or error on the stderr pipe is ignored; the master fd
			// remains authoritative for loop termination.
		}

		if readyMaster {
			n, err := unix.Read(masterFd, buf)
			if err != nil || n == 0 {
				return nil
			}
			data := buf[:n]
			writeFull(r.stdoutFd, data)
			t := r.writeEvent(cast.KindOutput, data)
			if r.hub != nil {
				r.hub.Publish(t, cast.KindOutput, string(data))
			}
		}
	}
}

// drainOnExit reads whatever is still sitting in master_fd/stderr_fd
// after the child has been reaped, recording it exactly as the main
// loop would. Bounded to maxDrainIterations reads per descriptor so a
// descriptor that somehow stays perpetually readable can't hang
// teardown (spec.md §4.7 step 3: "best-effort, bounded").
func (r *Recorder) drainOnExit(masterFd, stderrFd int, buf []byte) {
	masterDone, stderrDone := false, false
	for i := 0; i < maxDrainIterations && !(masterDone && stderrDone); i++ {
		ready, err := selectReadable([]int{masterFd, stderrFd}, 0)
		if err != nil {
			return
		}
		readyMaster, readyStderr := ready[0], ready[1]

		if !masterDone {
			if !readyMaster {
				masterDone = true
			} else if n, err := unix.Read(masterFd, buf); err != nil || n == 0 {
				masterDone = true
			} else {
				data := buf[:n]
				writeFull(r.stdoutFd, data)
				t := r.writeEvent(cast.KindOutput, data)
				if r.hub != nil {
					r.hub.Publish(t, cast.KindOutput, string(data))
				}
			}
		}

		if !stderrDone {
			if !readyStderr {
				stderrDone = true
			} else if n, err := unix.Read(stderrFd, buf); err != nil || n == 0 {
				stderrDone = true
			} else {
				data := buf[:n]
				writeFull(r.stderrFd, data)
				t := r.writeEvent(cast.KindStderr, data)
				if r.hub != nil {
					r.hub.Publish(t, cast.KindStderr, string(data))
				}
			}
		}
	}
}

// writeFull retries a write until every byte is accepted, the
// retry-until-complete policy spec.md §4.7 step 4 requires for outbound
// fds ("Partial writes ... must be retried until complete; bytes are
// never dropped"). EINTR (reachable here: this process installs SIGINT
// and SIGWINCH handlers, either of which can interrupt an in-flight
// write) is retried rather than surfaced.
func writeFull(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}

// syncWindowSize reads the controlling terminal's current size and
// applies it to the pty master. The next poll iteration's
// checkTerminalState call observes the resulting winsize change and
// records the "r" event, keeping the pty's size and the logged payload
// in lockstep per the invariant in §3.
func (r *Recorder) syncWindowSize() {
	ws, err := unix.IoctlGetWinsize(r.ttyFd, unix.TIOCGWINSZ)
	if err != nil {
		return
	}
	r.host.SetWindowSize(ws.Row, ws.Col)
}

// writeEvent appends one event, stamped at the moment it is called, and
// returns that timestamp so callers can hand the hub the exact same
// value (keeping live viewer timestamps consistent with the cast file).
func (r *Recorder) writeEvent(kind string, data []byte) float64 {
	t := r.clock.Now()
	if err := r.writer.Append(cast.Event{
		Time: t,
		Type: kind,
		Data: string(data),
	}); err != nil {
		r.log.Warn("failed to append event", logging.F("error", err.Error()))
	}
	return t
}

// poll waits up to pollInterval for any of stdin, the pty master, and
// the stderr pipe to become readable.
func (r *Recorder) poll(masterFd, stderrFd int) (stdin, master, stderr bool, err error) {
	ready, err := selectReadable([]int{r.stdinFd, masterFd, stderrFd}, pollInterval)
	if err != nil {
		return false, false, false, err
	}
	return ready[0], ready[1], ready[2], nil
}

// selectReadable checks each fd (a value < 0 is skipped, always
// reported not-ready) for readability, blocking up to timeout. It
// underlies both the main loop's poll and the bounded post-exit drain,
// which uses a zero timeout for an immediate, non-blocking check.
func selectReadable(fds []int, timeout time.Duration) ([]bool, error) {
	var rfds unix.FdSet
	maxFd := 0
	for _, fd := range fds {
		if fd < 0 {
			continue
		}
		fdSet(&rfds, fd)
		if fd > maxFd {
			maxFd = fd
		}
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	n, err := unix.Select(maxFd+1, &rfds, nil, nil, &tv)
	if err != nil {
		return nil, err
	}

	ready := make([]bool, len(fds))
	if n <= 0 {
		return ready, nil
	}
	for i, fd := range fds {
		ready[i] = fd >= 0 && fdIsSet(&rfds, fd)
	}
	return ready, nil
}

// checkTerminalState polls the master fd's termios attributes and
// window size, recording a marker/resize event on change. Grounded in
// check_terminal_state_changes from the original recorder.
func (r *Recorder) checkTerminalState(masterFd int) {
	attrs, err := unix.IoctlGetTermios(masterFd, ioctlGetTermios)
	if err == nil {
		if r.lastAttrs == nil {
			r.lastAttrs = attrs
		} else if !reflect.DeepEqual(attrs, r.lastAttrs) {
			r.writeEvent(cast.KindMetadata, []byte("terminal_attrs_changed"))
			r.lastAttrs = attrs
		}
	}

	ws, err := unix.IoctlGetWinsize(masterFd, unix.TIOCGWINSZ)
	if err == nil {
		if r.lastWinsize == nil {
			r.lastWinsize = ws
		} else if *ws != *r.lastWinsize {
			payload := fmt.Sprintf("%d,%d", ws.Row, ws.Col)
			r.writeEvent(cast.KindResize, []byte(payload))
			r.lastWinsize = ws
		}
	}
}
