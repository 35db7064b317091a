//go:build darwin

package recorder

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TIOCGETA
