// Command termcast records terminal sessions to the asciicast v2
// format, plays them back with interactive controls, and can serve a
// recording live to browser viewers while it is being captured.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "termcast",
	Short:   "Record, replay, and watch terminal sessions",
	Version: version,
	Long: `termcast records a shell session to an asciicast v2 file, replays a
recorded session with pause/skip/abort controls, and can expose a
recording to live browser viewers while it is being recorded.`,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(watchCmd)
}
