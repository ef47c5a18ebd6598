package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FluidXR/questlink/internal/discovery"
)

// Toolchain is the slice of the ADB client the orchestrator drives:
// TCP-level connect/disconnect plus the connected-state probe.
type Toolchain interface {
	Connect(ctx context.Context, addr string) error
	Disconnect(ctx context.Context, addr string) error
	IsConnected(ctx context.Context, addr string) (bool, error)
}

// Resolver is the discovery surface the orchestrator consumes to turn
// serial numbers into network locations.
type Resolver interface {
	StartDiscoveryListener() error
	StopDiscoveryListener()
	OnlineDevices() map[string]discovery.ServiceInfo
	ServiceInfoFor(serial string) (discovery.ServiceInfo, bool)
}

// Pairer runs the QR pairing flow for devices that are not yet paired.
type Pairer interface {
	Pair(ctx context.Context, show func(qr string) error) error
	StopPairListener()
}

// Options configures an Orchestrator. Zero values get defaults.
type Options struct {
	ConnectTimeout time.Duration      // bound on the connect/validate round trip
	ResolveTimeout time.Duration      // how long to wait for a connect advertisement
	PollInterval   time.Duration      // probe cadence while waiting
	ShowQR         func(string) error // invoked with the QR payload during pairing
}

func (o *Options) defaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}
	if o.ResolveTimeout <= 0 {
		o.ResolveTimeout = 10 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	if o.ShowQR == nil {
		o.ShowQR = func(qr string) error {
			fmt.Println(qr)
			return nil
		}
	}
}

// Orchestrator turns a set of requested serial numbers into live ADB
// connections, pairing unpaired devices on the way and reporting per-device
// success or failure. It is the only mutator of per-device Status.
type Orchestrator struct {
	adb       Toolchain
	discovery Resolver
	pairing   Pairer
	opts      Options

	// pairMu serializes access to the shared Pairer: its QR session is
	// singular, so concurrent workers take turns running the pairing flow
	pairMu sync.Mutex

	mu        sync.Mutex
	statuses  map[string]Status
	endpoints map[string]discovery.ServiceInfo
	closed    bool
}

// New creates an orchestrator over the given collaborators.
func New(adb Toolchain, d Resolver, p Pairer, opts Options) *Orchestrator {
	opts.defaults()
	return &Orchestrator{
		adb:       adb,
		discovery: d,
		pairing:   p,
		opts:      opts,
		statuses:  make(map[string]Status),
		endpoints: make(map[string]discovery.ServiceInfo),
	}
}

// VisibleDevices lists the devices currently advertising a connect service.
func (o *Orchestrator) VisibleDevices() map[string]discovery.ServiceInfo {
	return o.discovery.OnlineDevices()
}

// StatusFor returns the connection status tracked for serial.
func (o *Orchestrator) StatusFor(serial string) Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.statuses[serial]; ok {
		return s
	}
	return StatusUnknown
}

func (o *Orchestrator) setStatus(serial string, s Status) {
	o.mu.Lock()
	o.statuses[serial] = s
	o.mu.Unlock()
}

// CheckPairing reports whether serial is already paired with this host. A
// paired device broadcasts a connect advertisement, so pairing state is
// derived from the connect-advert registry (or from an endpoint this
// orchestrator already tracks).
func (o *Orchestrator) CheckPairing(serial string) bool {
	o.mu.Lock()
	_, tracked := o.endpoints[serial]
	o.mu.Unlock()
	if tracked {
		return true
	}
	_, ok := o.discovery.ServiceInfoFor(serial)
	return ok
}

// BuildCommURI resolves serial to a connection endpoint of the form
// "ip:port", preferring an endpoint from an established connection over the
// live discovery entry. Fails with AddressError when neither exists.
func (o *Orchestrator) BuildCommURI(serial string) (string, error) {
	o.mu.Lock()
	info, tracked := o.endpoints[serial]
	o.mu.Unlock()
	if tracked {
		return info.Addr(), nil
	}
	if info, ok := o.discovery.ServiceInfoFor(serial); ok {
		return info.Addr(), nil
	}
	return "", &AddressError{Serial: serial}
}

// resolve waits for serial's connect advertisement, bounded by
// ResolveTimeout. Pairing completion and the advertisement appearing are
// asynchronous, so a fresh pairing needs this grace period.
func (o *Orchestrator) resolve(ctx context.Context, serial string) (discovery.ServiceInfo, error) {
	deadline := time.Now().Add(o.opts.ResolveTimeout)
	for {
		if info, ok := o.discovery.ServiceInfoFor(serial); ok {
			return info, nil
		}
		if time.Now().After(deadline) {
			return discovery.ServiceInfo{}, &AddressError{Serial: serial}
		}
		select {
		case <-ctx.Done():
			return discovery.ServiceInfo{}, ctx.Err()
		case <-time.After(o.opts.PollInterval):
		}
	}
}

// EstablishFirstConnection runs the full path for a never-before-connected
// device: verify pairing (running the QR flow if required), resolve the
// address, connect, and confirm the device reports a connected state within
// the configured timeout.
func (o *Orchestrator) EstablishFirstConnection(ctx context.Context, serial string) error {
	o.setStatus(serial, StatusDiscovered)

	if !o.CheckPairing(serial) {
		o.setStatus(serial, StatusPairing)
		if err := o.pairDevice(ctx, serial); err != nil {
			o.setStatus(serial, StatusFailed)
			return &PairError{Serial: serial, Err: err}
		}
		o.setStatus(serial, StatusPaired)
	}

	info, err := o.resolve(ctx, serial)
	if err != nil {
		o.setStatus(serial, StatusFailed)
		return err
	}

	o.setStatus(serial, StatusConnecting)
	connectCtx, cancel := context.WithTimeout(ctx, o.opts.ConnectTimeout)
	defer cancel()
	if err := o.adb.Connect(connectCtx, info.Addr()); err != nil {
		o.setStatus(serial, StatusFailed)
		return &ConnectError{Serial: serial, Addr: info.Addr(), Err: err}
	}
	if err := o.awaitConnected(connectCtx, info.Addr()); err != nil {
		o.setStatus(serial, StatusFailed)
		return &ConnectError{Serial: serial, Addr: info.Addr(), Err: err}
	}

	o.mu.Lock()
	o.endpoints[serial] = info
	o.statuses[serial] = StatusConnected
	o.mu.Unlock()
	return nil
}

// pairDevice runs the QR pairing flow for serial under pairMu. The Pairer's
// session and its stop path are shared, so only one pairing flow may be in
// flight at a time; a device that got paired while this one waited its turn
// (one code scan can pair several candidates) skips the flow entirely.
func (o *Orchestrator) pairDevice(ctx context.Context, serial string) error {
	o.pairMu.Lock()
	defer o.pairMu.Unlock()
	if o.CheckPairing(serial) {
		return nil
	}
	return o.pairing.Pair(ctx, o.opts.ShowQR)
}

// awaitConnected polls the ADB server until addr reports connected or ctx
// expires.
func (o *Orchestrator) awaitConnected(ctx context.Context, addr string) error {
	for {
		ok, err := o.adb.IsConnected(ctx, addr)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("device did not report connected: %w", ctx.Err())
		case <-time.After(o.opts.PollInterval):
		}
	}
}

// ValidateConnection re-checks that a previously connected device is still
// reachable. A failed validation moves the device to the failed state.
func (o *Orchestrator) ValidateConnection(ctx context.Context, serial string) error {
	addr, err := o.BuildCommURI(serial)
	if err != nil {
		return err
	}
	ok, err := o.adb.IsConnected(ctx, addr)
	if err != nil {
		o.setStatus(serial, StatusFailed)
		return &ConnectError{Serial: serial, Addr: addr, Err: err}
	}
	if !ok {
		o.setStatus(serial, StatusFailed)
		return &ConnectError{Serial: serial, Addr: addr, Err: fmt.Errorf("device not reported by adb")}
	}
	return nil
}

// ConnectAllDevices applies EstablishFirstConnection independently to each
// serial, one worker per device, and joins all results before returning. A
// failure on one device never aborts processing of the others. Workers that
// need pairing take turns on the shared pairing flow.
func (o *Orchestrator) ConnectAllDevices(ctx context.Context, serials []string) BatchResult {
	results := make([]Result, len(serials))
	var wg sync.WaitGroup
	for i, serial := range serials {
		wg.Add(1)
		go func(i int, serial string) {
			defer wg.Done()
			err := o.EstablishFirstConnection(ctx, serial)
			results[i] = Result{
				Serial: serial,
				Status: o.StatusFor(serial),
				Err:    err,
			}
		}(i, serial)
	}
	wg.Wait()
	return BatchResult{Results: results}
}

// StartConnection connects a device that is already paired: resolve the
// endpoint, connect, validate. No pairing flow is attempted.
func (o *Orchestrator) StartConnection(ctx context.Context, serial string) error {
	addr, err := o.BuildCommURI(serial)
	if err != nil {
		return err
	}
	o.setStatus(serial, StatusConnecting)
	connectCtx, cancel := context.WithTimeout(ctx, o.opts.ConnectTimeout)
	defer cancel()
	if err := o.adb.Connect(connectCtx, addr); err != nil {
		o.setStatus(serial, StatusFailed)
		return &ConnectError{Serial: serial, Addr: addr, Err: err}
	}
	if err := o.awaitConnected(connectCtx, addr); err != nil {
		o.setStatus(serial, StatusFailed)
		return &ConnectError{Serial: serial, Addr: addr, Err: err}
	}
	o.mu.Lock()
	if info, ok := o.discovery.ServiceInfoFor(serial); ok {
		o.endpoints[serial] = info
	}
	o.statuses[serial] = StatusConnected
	o.mu.Unlock()
	return nil
}

// StopConnection disconnects a tracked device but keeps its endpoint so a
// later StartConnection can reuse it.
func (o *Orchestrator) StopConnection(ctx context.Context, serial string) error {
	o.mu.Lock()
	info, tracked := o.endpoints[serial]
	o.mu.Unlock()
	if !tracked {
		return &AddressError{Serial: serial}
	}
	if err := o.adb.Disconnect(ctx, info.Addr()); err != nil {
		return err
	}
	o.setStatus(serial, StatusDisconnected)
	return nil
}

// Disconnect disconnects serial and stops tracking it. Disconnecting a
// device that is already disconnected or was never connected is a no-op.
func (o *Orchestrator) Disconnect(ctx context.Context, serial string) error {
	o.mu.Lock()
	info, tracked := o.endpoints[serial]
	status := o.statuses[serial]
	o.mu.Unlock()
	if !tracked || status == StatusDisconnected {
		o.setStatus(serial, StatusDisconnected)
		return nil
	}
	if err := o.adb.Disconnect(ctx, info.Addr()); err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.endpoints, serial)
	o.statuses[serial] = StatusDisconnected
	o.mu.Unlock()
	return nil
}

// CheckConnections re-validates every tracked connected device. Devices that
// fail validation transition to failed and are reported; they are not
// retried automatically.
func (o *Orchestrator) CheckConnections(ctx context.Context) []Result {
	o.mu.Lock()
	var serials []string
	for serial, status := range o.statuses {
		if status == StatusConnected {
			serials = append(serials, serial)
		}
	}
	o.mu.Unlock()

	var results []Result
	for _, serial := range serials {
		err := o.ValidateConnection(ctx, serial)
		results = append(results, Result{
			Serial: serial,
			Status: o.StatusFor(serial),
			Err:    err,
		})
	}
	return results
}

// Close releases the owned browser sessions and disconnects every tracked
// device. Safe to call multiple times.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	endpoints := make(map[string]discovery.ServiceInfo, len(o.endpoints))
	for serial, info := range o.endpoints {
		endpoints[serial] = info
	}
	o.mu.Unlock()

	o.pairing.StopPairListener()
	o.discovery.StopDiscoveryListener()

	var firstErr error
	for serial, info := range endpoints {
		if err := o.adb.Disconnect(ctx, info.Addr()); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		o.setStatus(serial, StatusDisconnected)
	}
	return firstErr
}
