package util

import (
	"fmt"
)

var ErrRegistryNotFound = fmt.Errorf("Registry not located. Make sure a Registry is running on this network.")
var ErrBadResponse = fmt.Errorf("The response from the Registry was not usable.")
var ErrConnectionDropped = fmt.Errorf("The connection to the service closed before a response arrived.")
