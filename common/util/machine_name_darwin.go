//go:build darwin
// +build darwin

package util

import (
	"os"
	"strings"
)

func MachineName() (name string) {
	name, _ = os.Hostname()
	name = strings.TrimSuffix(name, ".local")
	return
}
