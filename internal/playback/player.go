// Package playback implements the timed replay engine: it walks a
// loaded recording's events, sleeping between them in short slices so
// pause/skip/abort controls stay responsive, and writes each event to
// the appropriate stream.
package playback

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/artpar/termcast/internal/cast"
	"github.com/artpar/termcast/internal/logging"
)

// sleepSlice bounds how long a single time.Sleep call blocks, so control
// input can be observed between slices (mirrors the original's
// `time.sleep(min(0.1, remaining_delay))`).
const sleepSlice = 100 * time.Millisecond

// Action is the effect a control byte has on playback.
type Action int

const (
	ActionNone Action = iota
	ActionAbort
	ActionTogglePause
	ActionSkip
)

// Controls is polled by the player between sleep slices. Poll must not
// block; it returns ActionNone when no control byte is waiting.
type Controls interface {
	Poll() Action
}

// Options configures a Player.
type Options struct {
	Speed    float64 // playback speed multiplier, must be > 0
	MaxDelay float64 // seconds, inter-event delay is clamped to this
	Stdout   io.Writer
	Stderr   io.Writer
	Controls Controls
}

// Player replays a Recording's events against Options.Stdout/Stderr.
type Player struct {
	rec  *cast.Recording
	opts Options
	log  *logging.Logger

	paused bool
	skip   bool
}

// New creates a Player. Speed<=0 is normalized to 1.0; MaxDelay<=0 is
// normalized to 5.0, matching the CLI's own validation defaults.
func New(rec *cast.Recording, opts Options) *Player {
	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5.0
	}
	return &Player{rec: rec, opts: opts, log: logging.WithComponent("playback")}
}

// ErrAborted is returned by Run when the user sends Ctrl-C mid-playback.
type ErrAborted struct{}

func (ErrAborted) Error() string { return "playback: aborted by user" }

// Run replays every event in order. It returns ErrAborted on Ctrl-C, or
// nil once the recording is exhausted.
func (p *Player) Run() error {
	var lastTime float64

	for i, ev := range p.rec.Events {
		delay := (ev.Time - lastTime) / p.opts.Speed
		lastTime = ev.Time

		if !p.skip {
			if action, aborted := p.waitDelay(delay); aborted {
				return ErrAborted{}
			} else if action == ActionSkip {
				p.skip = true
			}
		}

		// Re-check after waitDelay may have just turned skip mode on:
		// the event we were delaying for is itself a valid skip anchor,
		// and must be caught in the same iteration rather than only on
		// the next one.
		if p.skip {
			if ev.Type == cast.KindInput || (ev.Type == cast.KindMetadata && strings.HasPrefix(ev.Data, "activity_resumed_after_")) {
				p.skip = false
				p.paused = true
				p.setTitle(fmt.Sprintf("paused (skipped to event %d)", i))
			}
		}

		for p.paused {
			action := p.pollControls()
			switch action {
			case ActionAbort:
				return ErrAborted{}
			case ActionTogglePause:
				p.paused = false
				p.setTitle("playing")
			}
			if p.paused {
				time.Sleep(sleepSlice)
			}
		}

		p.dispatch(ev)
	}
	return nil
}

// waitDelay sleeps for delay seconds (clamped to MaxDelay), in slices no
// longer than sleepSlice, returning early on Ctrl-C/pause/skip.
func (p *Player) waitDelay(delay float64) (action Action, aborted bool) {
	if delay < 0 {
		delay = 0
	}
	clamped := delay
	capped := false
	if clamped > p.opts.MaxDelay {
		clamped = p.opts.MaxDelay
		capped = true
	}
	if capped {
		p.setTitle(fmt.Sprintf("delay capped at %.1fs", p.opts.MaxDelay))
	}

	remaining := time.Duration(clamped * float64(time.Second))
	for remaining > 0 {
		switch p.pollControls() {
		case ActionAbort:
			return ActionNone, true
		case ActionTogglePause:
			p.paused = true
			p.setTitle("paused")
			return ActionNone, false
		case ActionSkip:
			return ActionSkip, false
		}

		slice := sleepSlice
		if slice > remaining {
			slice = remaining
		}
		time.Sleep(slice)
		remaining -= slice
	}
	return ActionNone, false
}

func (p *Player) pollControls() Action {
	if p.opts.Controls == nil {
		return ActionNone
	}
	return p.opts.Controls.Poll()
}

func (p *Player) dispatch(ev cast.Event) {
	switch ev.Type {
	case cast.KindOutput:
		io.WriteString(p.opts.Stdout, ev.Data)
	case cast.KindStderr:
		io.WriteString(p.opts.Stderr, ev.Data)
	case cast.KindResize:
		var rows, cols int
		if _, err := fmt.Sscanf(ev.Data, "%d,%d", &rows, &cols); err == nil {
			fmt.Fprintf(p.opts.Stdout, "\x1b[8;%d;%dt", rows, cols)
		}
	case cast.KindInput, cast.KindMetadata:
		// display no-ops; i/m events exist for skip-mode anchoring only
	default:
		p.log.Warn("unknown event kind", logging.F("kind", ev.Type))
	}
}

// setTitle writes an OSC title-set sequence to stderr so stdout stays
// clean for the replayed session, matching set_terminal_title.
func (p *Player) setTitle(title string) {
	fmt.Fprintf(p.opts.Stderr, "\x1b]0;%s\x07", title)
	fmt.Fprintf(p.opts.Stderr, "\x1b]2;%s\x07", title)
}
