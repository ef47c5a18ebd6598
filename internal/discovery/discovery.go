package discovery

import "sync"

// AdvertStatus is the advertisement-level view of a device, derived purely
// from registry presence. It is distinct from the TCP-connection-level
// status owned by the connection orchestrator.
type AdvertStatus string

const (
	// StatusUpdated: the device is online and its address matches.
	StatusUpdated AdvertStatus = "updated"
	// StatusChanged: the device is online but now advertises a different IP.
	StatusChanged AdvertStatus = "changed"
	// StatusDown: the device was seen before but its advertisement is gone.
	StatusDown AdvertStatus = "down"
	// StatusUnknown: the device has never been seen.
	StatusUnknown AdvertStatus = "unknown"
)

// Discovery browses connect advertisements and classifies devices as
// online/offline based on registry presence.
type Discovery struct {
	mu       sync.Mutex
	registry *Registry
	browser  *Browser
	started  bool
}

// NewDiscovery creates a discovery coordinator with its own registry.
func NewDiscovery() *Discovery {
	registry := NewRegistry()
	return &Discovery{
		registry: registry,
		browser:  NewConnectBrowser(registry),
	}
}

// StartDiscoveryListener starts browsing for connect advertisements. It
// fails with a DiscoveryError if the listener is already running or the
// network bind fails; the running listener is never duplicated.
func (d *Discovery) StartDiscoveryListener() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return &DiscoveryError{ServiceType: ConnectService, Err: ErrAlreadyStarted}
	}
	if err := d.browser.Start(); err != nil {
		return err
	}
	d.started = true
	return nil
}

// Started reports whether the discovery listener is running.
func (d *Discovery) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// OnlineDevices returns the devices whose connect advertisement is currently
// visible, keyed by serial number.
func (d *Discovery) OnlineDevices() map[string]ServiceInfo {
	return d.registry.Online()
}

// OfflineDevices returns the devices seen previously whose advertisement has
// been withdrawn, keyed by serial number.
func (d *Discovery) OfflineDevices() map[string]ServiceInfo {
	return d.registry.Offline()
}

// ServiceInfoFor returns the current advertisement for serial, if the device
// is online.
func (d *Discovery) ServiceInfoFor(serial string) (ServiceInfo, bool) {
	info, ok := d.registry.Online()[serial]
	return info, ok
}

// StatusForDevice classifies info against the current registry state.
func (d *Discovery) StatusForDevice(info ServiceInfo) AdvertStatus {
	online, offline := d.registry.Snapshot()
	if _, ok := offline[info.Serial]; ok {
		return StatusDown
	}
	current, ok := online[info.Serial]
	if !ok {
		return StatusUnknown
	}
	if current.IP == info.IP {
		return StatusUpdated
	}
	return StatusChanged
}

// StopDiscoveryListener stops the browser session. Registry entries are
// retained so the last-known state remains queryable after stopping.
func (d *Discovery) StopDiscoveryListener() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	d.browser.Stop()
	d.started = false
}
