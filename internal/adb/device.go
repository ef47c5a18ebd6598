package adb

// ConnectionType indicates how a device is attached to the ADB server.
type ConnectionType string

const (
	USB     ConnectionType = "usb"
	WiFi    ConnectionType = "wifi"
	Unknown ConnectionType = "unknown"
)

// Device represents a device known to the ADB server.
type Device struct {
	Serial      string
	State       string // "device", "offline", "unauthorized", etc.
	ConnType    ConnectionType
	Model       string
	Product     string
	TransportID string
}

// IsOnline returns true if the device is in "device" state (ready).
func (d Device) IsOnline() bool {
	return d.State == "device"
}
