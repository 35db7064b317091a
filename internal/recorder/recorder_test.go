//go:build !windows

package recorder

import (
	"path/filepath"
	"testing"

	"github.com/artpar/termcast/internal/cast"
	"github.com/artpar/termcast/internal/clock"
	"github.com/artpar/termcast/internal/ptyhost"
)

// Run's top-level poll loop reads the process's real stdin/stdout/stderr
// fds, which aren't redirectable from within go test; these tests
// exercise the recorder's internal event-writing and terminal-state
// detection directly instead, using a real pty for the ioctls.

func newTestRecorder(t *testing.T) (*Recorder, *ptyhost.Host, *cast.Writer) {
	t.Helper()
	host, err := ptyhost.Spawn("/bin/sh")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	t.Cleanup(func() { host.Close() })

	path := filepath.Join(t.TempDir(), "session.cast")
	writer, err := cast.NewWriter(path, cast.DefaultHeader(80, 24, "/bin/sh"))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	t.Cleanup(func() { writer.Close() })

	r := New(host, writer, clock.New(), nil)
	return r, host, writer
}

func TestWriteEventAppendsToWriter(t *testing.T) {
	r, _, _ := newTestRecorder(t)

	r.writeEvent(cast.KindOutput, []byte("hello"))
	r.writeEvent(cast.KindInput, []byte("world"))

	rec, err := cast.Load(r.writer.Path())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rec.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.Events))
	}
	if rec.Events[0].Data != "hello" || rec.Events[1].Data != "world" {
		t.Errorf("unexpected event data: %+v", rec.Events)
	}
	if rec.Events[1].Time < rec.Events[0].Time {
		t.Error("event timestamps must be non-decreasing")
	}
}

func TestSyncWindowSizePropagatesTtySizeToPty(t *testing.T) {
	r, host, _ := newTestRecorder(t)

	// A second pty stands in for the controlling terminal fd here, since
	// a real outer tty isn't available under go test; syncWindowSize
	// should copy whatever ioctl reports at ttyFd onto the recorder's
	// own pty master.
	outer, err := ptyhost.Spawn("/bin/sh")
	if err != nil {
		t.Fatalf("Spawn (outer) failed: %v", err)
	}
	defer outer.Close()
	outer.SetWindowSize(50, 132)

	r.ttyFd = int(outer.Fd())
	r.syncWindowSize()

	rows, cols, err := host.WindowSize()
	if err != nil {
		t.Fatalf("WindowSize failed: %v", err)
	}
	if rows != 50 || cols != 132 {
		t.Errorf("WindowSize() = (%d,%d), want (50,132)", rows, cols)
	}
}

func TestCheckTerminalStateDetectsInitialWinsize(t *testing.T) {
	r, host, _ := newTestRecorder(t)
	host.SetWindowSize(30, 100)

	r.checkTerminalState(int(host.Fd()))
	if r.lastWinsize == nil {
		t.Fatal("expected lastWinsize to be captured on first check")
	}

	host.SetWindowSize(40, 120)
	r.checkTerminalState(int(host.Fd()))

	rec, err := cast.Load(r.writer.Path())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var sawResize bool
	for _, e := range rec.Events {
		if e.Type == cast.KindResize && e.Data == "40,120" {
			sawResize = true
		}
	}
	if !sawResize {
		t.Errorf("expected a resize event with payload %q, got %+v", "40,120", rec.Events)
	}
}
