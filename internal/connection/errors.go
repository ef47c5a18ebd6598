package connection

import "fmt"

// AddressError reports that a device has no current discovery entry to
// resolve an endpoint from. Recoverable: the caller may retry after waiting
// for discovery.
type AddressError struct {
	Serial string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("no discovery entry for device %s", e.Serial)
}

// PairError reports that the pairing flow for a device failed or timed out.
type PairError struct {
	Serial string
	Err    error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("pair device %s: %v", e.Serial, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// ConnectError reports a connect or validation failure for a device.
type ConnectError struct {
	Serial string
	Addr   string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect device %s at %s: %v", e.Serial, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
