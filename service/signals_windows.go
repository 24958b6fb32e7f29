//go:build windows
// +build windows

package service

import (
	"os"
	"syscall"
)

func standardSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
