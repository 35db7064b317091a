package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

var (
	watchBrowser string
	watchNoOpen  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Open a browser to watch a live recording session",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchBrowser, "browser", "", "browser to use (chrome, firefox, safari, edge)")
	watchCmd.Flags().BoolVar(&watchNoOpen, "no-open", false, "print the URL instead of opening a browser")
}

func runWatch(cmd *cobra.Command, args []string) error {
	raw := args[0]
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("watch: invalid URL %q, expected http://host:port", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("watch: URL must use http:// or https://: %q", raw)
	}

	if watchNoOpen {
		fmt.Printf("Monitor URL: %s\n", raw)
		fmt.Println("Open this URL in your browser to view the terminal session.")
		return nil
	}

	fmt.Printf("Opening monitor session: %s\n", raw)
	if openBrowser(raw, watchBrowser) {
		fmt.Println("Browser opened. Press Ctrl-C to exit (the session keeps running).")
	} else {
		fmt.Printf("Could not open a browser automatically. Open this URL manually: %s\n", raw)
	}

	fmt.Print("Press Enter to exit this utility.\n")
	bufio.NewReader(os.Stdin).ReadString('\n')
	return nil
}

func openBrowser(target, browser string) bool {
	names := map[string]string{
		"chrome":  "google-chrome",
		"firefox": "firefox",
		"safari":  "open",
		"edge":    "microsoft-edge",
	}

	if browser != "" {
		cmdName := names[strings.ToLower(browser)]
		if cmdName == "" {
			cmdName = browser
		}
		if _, err := exec.LookPath(cmdName); err == nil {
			if exec.Command(cmdName, target).Start() == nil {
				return true
			}
		}
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start() == nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start() == nil
	default:
		if _, err := exec.LookPath("xdg-open"); err == nil {
			return exec.Command("xdg-open", target).Start() == nil
		}
		return false
	}
}
