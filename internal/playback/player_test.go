package playback

import (
	"bytes"
	"strings"
	"testing"

	"github.com/artpar/termcast/internal/cast"
)

// scriptedControls replays a fixed sequence of actions, one per Poll call,
// then returns ActionNone forever.
type scriptedControls struct {
	actions []Action
	i       int
}

func (s *scriptedControls) Poll() Action {
	if s.i >= len(s.actions) {
		return ActionNone
	}
	a := s.actions[s.i]
	s.i++
	return a
}

func TestDispatchWritesOutputAndStderrSeparately(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rec := &cast.Recording{Events: []cast.Event{
		{Time: 0, Type: cast.KindOutput, Data: "out"},
		{Time: 0, Type: cast.KindStderr, Data: "err"},
		{Time: 0, Type: cast.KindInput, Data: "ignored"},
	}}

	p := New(rec, Options{Stdout: &stdout, Stderr: &stderr, Controls: &scriptedControls{}})
	if err := p.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stdout.String() != "out" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "out")
	}
	if !strings.Contains(stderr.String(), "err") {
		t.Errorf("stderr = %q, want to contain %q", stderr.String(), "err")
	}
}

func TestDispatchResizeEmitsEscapeSequence(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rec := &cast.Recording{Events: []cast.Event{
		{Time: 0, Type: cast.KindResize, Data: "24,80"},
	}}

	p := New(rec, Options{Stdout: &stdout, Stderr: &stderr, Controls: &scriptedControls{}})
	if err := p.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stdout.String() != "\x1b[8;24;80t" {
		t.Errorf("stdout = %q, want resize escape sequence", stdout.String())
	}
}

func TestAbortReturnsErrAborted(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rec := &cast.Recording{Events: []cast.Event{
		{Time: 0, Type: cast.KindOutput, Data: "a"},
		{Time: 10, Type: cast.KindOutput, Data: "b"},
	}}

	p := New(rec, Options{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Controls: &scriptedControls{actions: []Action{ActionAbort}},
	})

	err := p.Run()
	if _, ok := err.(ErrAborted); !ok {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
	if stdout.String() != "a" {
		t.Errorf("stdout = %q, want only first event written before abort", stdout.String())
	}
}

func TestPauseThenResume(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rec := &cast.Recording{Events: []cast.Event{
		{Time: 0, Type: cast.KindOutput, Data: "a"},
		{Time: 0.01, Type: cast.KindOutput, Data: "b"},
	}}

	p := New(rec, Options{
		Stdout: &stdout, Stderr: &stderr,
		Controls: &scriptedControls{actions: []Action{ActionTogglePause, ActionTogglePause}},
	})

	if err := p.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stdout.String() != "ab" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "ab")
	}
}

// callbackControls invokes onPoll before returning the scripted action
// for that call, letting a test observe player state mid-wait.
type callbackControls struct {
	actions []Action
	i       int
	onPoll  func(callIndex int)
}

func (c *callbackControls) Poll() Action {
	if c.onPoll != nil {
		c.onPoll(c.i)
	}
	if c.i >= len(c.actions) {
		return ActionNone
	}
	a := c.actions[c.i]
	c.i++
	return a
}

// TestSkipPausesOnAnchorReachedDuringItsOwnDelay covers the case where
// Tab arrives while still waiting on the delay leading up to the anchor
// event itself (scenario 6): the anchor must be recognized and pause
// applied in that same iteration, not only checked against the next
// event in sequence.
func TestSkipPausesOnAnchorReachedDuringItsOwnDelay(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rec := &cast.Recording{Events: []cast.Event{
		{Time: 0, Type: cast.KindOutput, Data: "a"},
		{Time: 0, Type: cast.KindOutput, Data: "b"},
		{Time: 0.05, Type: cast.KindMetadata, Data: "activity_resumed_after_5s"},
		{Time: 0.1, Type: cast.KindOutput, Data: "c"},
	}}

	var stdoutAtSecondPoll string
	controls := &callbackControls{
		actions: []Action{ActionSkip, ActionTogglePause},
		onPoll: func(callIndex int) {
			if callIndex == 1 {
				stdoutAtSecondPoll = stdout.String()
			}
		},
	}

	p := New(rec, Options{Stdout: &stdout, Stderr: &stderr, Controls: controls})
	if err := p.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stdoutAtSecondPoll != "ab" {
		t.Errorf("stdout before resume = %q, want %q (anchor must pause before emitting the event after it)", stdoutAtSecondPoll, "ab")
	}
	if stdout.String() != "abc" {
		t.Errorf("final stdout = %q, want %q", stdout.String(), "abc")
	}
}

func TestNewNormalizesInvalidOptions(t *testing.T) {
	p := New(&cast.Recording{}, Options{Speed: -1, MaxDelay: 0})
	if p.opts.Speed != 1.0 {
		t.Errorf("Speed = %v, want normalized to 1.0", p.opts.Speed)
	}
	if p.opts.MaxDelay != 5.0 {
		t.Errorf("MaxDelay = %v, want normalized to 5.0", p.opts.MaxDelay)
	}
}
