// Package session holds the immutable metadata created once at
// recording start and broadcast to every viewer that attaches.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Metadata is immutable after creation.
type Metadata struct {
	SessionID     string    `json:"session_id"`
	StartWallTime time.Time `json:"start_wall_time"`
	ShellCommand  string    `json:"shell_command"`
	RecordingPath string    `json:"recording_path"`
}

// New creates Metadata with a fresh session ID.
func New(shellCommand, recordingPath string) Metadata {
	return Metadata{
		SessionID:     uuid.New().String(),
		StartWallTime: time.Now(),
		ShellCommand:  shellCommand,
		RecordingPath: recordingPath,
	}
}
