// Package cast implements the asciicast v2 file format used to persist
// and replay recorded terminal sessions: a header line followed by one
// JSON array per event.
package cast

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Header is the first line of a cast file.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Command   string            `json:"command,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Theme     *Theme            `json:"theme,omitempty"`
}

// Theme carries optional terminal color hints. Never consumed by the
// playback engine's control logic; preserved purely as header metadata.
type Theme struct {
	Foreground string `json:"fg,omitempty"`
	Background string `json:"bg,omitempty"`
}

// Event kinds, per the asciicast v2 extension this module defines.
const (
	KindOutput   = "o" // data written by the child to stdout
	KindStderr   = "e" // data written by the child to stderr
	KindInput    = "i" // data typed by the recording user
	KindResize   = "r" // window resize, payload "<rows>,<cols>"
	KindMetadata = "m" // marker event, payload is an opaque tag
)

// Event is a single recorded occurrence: [time, type, data].
type Event struct {
	Time float64 // seconds since recording start
	Type string
	Data string
}

// MarshalJSON renders the event as a 3-element JSON array.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]interface{}{e.Time, e.Type, e.Data})
}

// UnmarshalJSON parses a 3-element JSON array into an Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 3 {
		return fmt.Errorf("cast: event has %d elements, want 3", len(arr))
	}

	switch v := arr[0].(type) {
	case float64:
		e.Time = v
	default:
		return fmt.Errorf("cast: invalid time type %T", arr[0])
	}

	var ok bool
	e.Type, ok = arr[1].(string)
	if !ok {
		return fmt.Errorf("cast: invalid type field %T", arr[1])
	}
	e.Data, ok = arr[2].(string)
	if !ok {
		return fmt.Errorf("cast: invalid data field %T", arr[2])
	}
	return nil
}

// Recording is a fully loaded cast file: header plus ordered events.
type Recording struct {
	Header Header
	Events []Event
}

// Duration returns the timestamp of the last event.
func (r *Recording) Duration() time.Duration {
	if len(r.Events) == 0 {
		return 0
	}
	return time.Duration(r.Events[len(r.Events)-1].Time * float64(time.Second))
}

// EventCount returns the number of events in the recording.
func (r *Recording) EventCount() int {
	return len(r.Events)
}

// DefaultHeader builds a header from the process environment, matching
// the fields record_session.py writes.
func DefaultHeader(width, height int, command string) Header {
	shell := envOr("SHELL", "/bin/sh")
	term := envOr("TERM", "xterm-256color")
	return Header{
		Version:   2,
		Width:     width,
		Height:    height,
		Timestamp: time.Now().Unix(),
		Command:   command,
		Env: map[string]string{
			"SHELL": shell,
			"TERM":  term,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
