package version

import (
	"github.com/blang/semver"
)

// CURRENT_VERSION is the version of the fabric protocol and tools built
// from this tree.
var CURRENT_VERSION = semver.MustParse("0.9.4")
