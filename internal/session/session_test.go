package session

import "testing"

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := New("/bin/sh", "/tmp/a.cast")
	b := New("/bin/sh", "/tmp/b.cast")

	if a.SessionID == "" {
		t.Error("expected a non-empty session ID")
	}
	if a.SessionID == b.SessionID {
		t.Error("expected distinct session IDs across calls")
	}
	if a.ShellCommand != "/bin/sh" || a.RecordingPath != "/tmp/a.cast" {
		t.Errorf("unexpected metadata: %+v", a)
	}
}
