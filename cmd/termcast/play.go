package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/artpar/termcast/internal/cast"
	"github.com/artpar/termcast/internal/playback"
	"github.com/artpar/termcast/internal/termctl"
)

var (
	playSpeed         float64
	playMaxDelay      float64
	playInTerminalRaw bool
)

var playCmd = &cobra.Command{
	Use:   "play <cast-file>",
	Short: "Replay a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().Float64Var(&playSpeed, "speed", 1.0, "playback speed multiplier")
	playCmd.Flags().Float64Var(&playMaxDelay, "max-delay", 5.0, "maximum seconds to wait between events")
	playCmd.Flags().BoolVar(&playInTerminalRaw, "play-in-terminal", false, "run inline instead of spawning a terminal window")
	playCmd.Flags().MarkHidden("play-in-terminal")
}

func runPlay(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("play: cast file %q not found", path)
	}
	if playSpeed <= 0 {
		return fmt.Errorf("play: --speed must be positive")
	}
	if playMaxDelay <= 0 {
		return fmt.Errorf("play: --max-delay must be positive")
	}

	if !playInTerminalRaw {
		if spawned := trySpawnTerminalWindow(path); spawned {
			return nil
		}
	}

	return playInline(path)
}

func playInline(path string) error {
	rec, err := cast.Load(path)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}

	stdinFd := int(os.Stdin.Fd())
	termSession, err := termctl.Acquire(stdinFd)
	if err != nil {
		return fmt.Errorf("play: acquire terminal: %w", err)
	}
	defer termSession.Release()

	player := playback.New(rec, playback.Options{
		Speed:    playSpeed,
		MaxDelay: playMaxDelay,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Controls: playback.NewStdinControls(stdinFd),
	})

	err = player.Run()
	termSession.Release()

	if _, aborted := err.(playback.ErrAborted); aborted {
		fmt.Fprintln(os.Stderr, "\nplayback interrupted")
		return nil
	}
	return err
}

// trySpawnTerminalWindow re-invokes this binary with --play-in-terminal
// inside a freshly spawned terminal emulator, mirroring
// create_terminal_window's platform fallback chain. Returns false (and
// does nothing) when no suitable terminal emulator is found, so the
// caller falls back to inline playback.
func trySpawnTerminalWindow(path string) bool {
	self, err := os.Executable()
	if err != nil {
		return false
	}

	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`tell application "Terminal" to do script "%s play --play-in-terminal %s"`, self, path)
		cmd := exec.Command("osascript", "-e", script)
		return cmd.Start() == nil
	case "linux":
		candidates := [][]string{
			{"gnome-terminal", "--", self, "play", "--play-in-terminal", path},
			{"konsole", "-e", self, "play", "--play-in-terminal", path},
			{"xterm", "-e", self, "play", "--play-in-terminal", path},
			{"x-terminal-emulator", "-e", self, "play", "--play-in-terminal", path},
		}
		for _, args := range candidates {
			if _, err := exec.LookPath(args[0]); err != nil {
				continue
			}
			cmd := exec.Command(args[0], args[1:]...)
			if cmd.Start() == nil {
				return true
			}
		}
		return false
	default:
		return false
	}
}
