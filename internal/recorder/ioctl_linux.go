//go:build linux

package recorder

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TCGETS
