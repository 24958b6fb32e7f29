// Package config loads the per-host configuration file, a section-less
// key=value text file. Values that fail validation are replaced by the
// built-in defaults with one diagnostic line to the logger.
package config

import (
	"time"

	"github.com/op/go-logging"
	"gopkg.in/ini.v1"

	"nimo.cc/nimo/common/network"
)

// Recognized keys.
const (
	LoggerAddressKey   = "logger address"
	LoggerPortKey      = "logger port"
	StatusAddressKey   = "status address"
	StatusPortKey      = "status port"
	RegistryTimeoutKey = "registry search timeout"
)

// DefaultRegistrySearchTimeout bounds the wait for Registry discovery.
const DefaultRegistrySearchTimeout = 5 * time.Second

// Config carries the validated settings.
type Config struct {
	LogConnection         network.Connection
	StatusConnection      network.Connection
	RegistrySearchTimeout time.Duration
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		LogConnection:         network.DefaultLogConnection,
		StatusConnection:      network.DefaultStatusConnection,
		RegistrySearchTimeout: DefaultRegistrySearchTimeout,
	}
}

// Load reads the file at path, falling back to DefaultPath when path is
// empty. A missing file yields the defaults silently; invalid values yield
// the defaults with a diagnostic.
func Load(path string, log *logging.Logger) Config {
	settings := Defaults()
	if path == "" {
		path = DefaultPath
	}
	file, err := ini.Load(path)
	if err != nil {
		return settings
	}
	section := file.Section("")
	readConnection(section, LoggerAddressKey, LoggerPortKey, &settings.LogConnection, log)
	readConnection(section, StatusAddressKey, StatusPortKey, &settings.StatusConnection, log)
	if key, found := lookup(section, RegistryTimeoutKey); found {
		seconds, parseErr := key.Float64()
		if parseErr != nil || seconds <= 0 {
			diagnose(log, RegistryTimeoutKey)
		} else {
			settings.RegistrySearchTimeout = time.Duration(seconds * float64(time.Second))
		}
	}
	return settings
}

func readConnection(section *ini.Section, addressKey, portKey string, target *network.Connection, log *logging.Logger) {
	if key, found := lookup(section, addressKey); found {
		if address := key.String(); network.ValidMulticastAddress(address) {
			target.Address = address
		} else {
			diagnose(log, addressKey)
		}
	}
	if key, found := lookup(section, portKey); found {
		port, parseErr := key.Int()
		if parseErr != nil || !network.ValidPortNumber(port, false) {
			diagnose(log, portKey)
		} else {
			target.Port = uint16(port)
		}
	}
}

func lookup(section *ini.Section, name string) (key *ini.Key, found bool) {
	if !section.HasKey(name) {
		return nil, false
	}
	return section.Key(name), true
}

func diagnose(log *logging.Logger, key string) {
	if log != nil {
		log.Warningf("invalid value for %q in configuration file; using the default", key)
	}
}
