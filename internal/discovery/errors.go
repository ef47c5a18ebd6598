package discovery

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned when a listener is started while one is
// already running.
var ErrAlreadyStarted = errors.New("discovery listener already running")

// DiscoveryError reports a failure to bind or run the mDNS listener for a
// service type. It is fatal to the browser session that produced it.
type DiscoveryError struct {
	ServiceType string
	Err         error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery %s: %v", e.ServiceType, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
