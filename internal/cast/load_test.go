package cast

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRaw(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.cast")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	for _, l := range lines {
		f.WriteString(l + "\n")
	}
	return path
}

func TestLoadParsesHeaderAndEvents(t *testing.T) {
	path := writeRaw(t,
		`{"version":2,"width":80,"height":24,"timestamp":1000,"env":{"SHELL":"/bin/sh","TERM":"xterm"}}`,
		`[0.0,"o","hello"]`,
		`[0.5,"i","x"]`,
	)

	rec, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.Header.Version != 2 || rec.Header.Width != 80 {
		t.Errorf("unexpected header: %+v", rec.Header)
	}
	if len(rec.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.Events))
	}
}

func TestLoadSkipsMalformedEventLines(t *testing.T) {
	path := writeRaw(t,
		`{"version":2,"width":80,"height":24,"timestamp":1000}`,
		`[0.0,"o","good"]`,
		`not json`,
		`[1.0,"o","also good"]`,
	)

	rec, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rec.Events) != 2 {
		t.Errorf("got %d events, want 2 malformed line skipped", len(rec.Events))
	}
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	path := writeRaw(t, `{"version":1,"width":80,"height":24,"timestamp":1000}`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for version != 2")
	}
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cast")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for empty file")
	}
}
