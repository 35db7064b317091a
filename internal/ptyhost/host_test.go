//go:build !windows

package ptyhost

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpawnAndReadWrite(t *testing.T) {
	host, err := Spawn("/bin/sh")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	defer host.Close()

	if _, err := host.Write([]byte("echo hello\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	buf := make([]byte, 1024)
	var output bytes.Buffer
	done := make(chan bool)

	go func() {
		for {
			n, err := host.Read(buf)
			if err != nil {
				break
			}
			output.Write(buf[:n])
			if strings.Contains(output.String(), "hello") {
				done <- true
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for output, got: %q", output.String())
	}
}

func TestSpawnRejectsNonExecutable(t *testing.T) {
	if _, err := Spawn("/etc/hosts"); err == nil {
		t.Error("expected error for a non-executable shell path")
	}
}

func TestSpawnDefaultsShellFromEnv(t *testing.T) {
	host, err := Spawn("")
	if err != nil {
		t.Fatalf("Spawn with empty shell failed: %v", err)
	}
	defer host.Close()
}

func TestSetWindowSize(t *testing.T) {
	host, err := Spawn("/bin/sh")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	defer host.Close()

	if err := host.SetWindowSize(40, 120); err != nil {
		t.Errorf("SetWindowSize failed: %v", err)
	}
	rows, cols, err := host.WindowSize()
	if err != nil {
		t.Fatalf("WindowSize failed: %v", err)
	}
	if rows != 40 || cols != 120 {
		t.Errorf("WindowSize() = (%d,%d), want (40,120)", rows, cols)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	host, err := Spawn("/bin/sh")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if err := host.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := host.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
