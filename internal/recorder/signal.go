//go:build !windows

package recorder

import (
	"os"
	"os/signal"
	"syscall"
)

func signalNotify(c chan os.Signal) {
	signal.Notify(c, syscall.SIGINT)
}

func signalStop(c chan os.Signal) {
	signal.Stop(c)
}

func signalNotifyWinch(c chan os.Signal) {
	signal.Notify(c, syscall.SIGWINCH)
}
