package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nimo-config.txt")
	assert.NilError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	settings := Load(filepath.Join(t.TempDir(), "absent.txt"), nil)
	assert.Equal(t, settings, Defaults())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
logger address = 239.1.2.3
logger port = 2000
status address = 239.4.5.6
status port = 2001
registry search timeout = 2.5
`)
	settings := Load(path, nil)
	assert.Equal(t, settings.LogConnection.Address, "239.1.2.3")
	assert.Equal(t, settings.LogConnection.Port, uint16(2000))
	assert.Equal(t, settings.StatusConnection.Address, "239.4.5.6")
	assert.Equal(t, settings.StatusConnection.Port, uint16(2001))
	assert.Equal(t, settings.RegistrySearchTimeout, 2500*time.Millisecond)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
logger address = 10.0.0.1
logger port = 80
status address = not-an-address
registry search timeout = -4
`)
	settings := Load(path, nil)
	// every bad value falls back to its default
	assert.Equal(t, settings, Defaults())
}

func TestLoadPartialOverride(t *testing.T) {
	path := writeConfig(t, "status port = 4321\n")
	settings := Load(path, nil)
	assert.Equal(t, settings.StatusConnection.Port, uint16(4321))
	assert.Equal(t, settings.StatusConnection.Address, Defaults().StatusConnection.Address)
	assert.Equal(t, settings.LogConnection, Defaults().LogConnection)
}
