//go:build windows
// +build windows

package config

// DefaultPath is where the configuration file lives unless overridden per
// invocation.
const DefaultPath = "C:/nImO/nimo-config.txt"
