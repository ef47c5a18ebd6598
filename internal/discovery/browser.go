package discovery

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

// BrowserStatus describes the lifecycle state of a Browser.
type BrowserStatus string

const (
	BrowserStopped  BrowserStatus = "stopped"
	BrowserStarting BrowserStatus = "starting"
	BrowserRunning  BrowserStatus = "running"
	BrowserError    BrowserStatus = "error"
)

// Browser owns a single mDNS browse for one service type and feeds resolved
// advertisements into a Registry. Entries arrive on a channel from the
// zeroconf resolver's listener goroutine and are applied by a single
// consumer goroutine, so registry updates from one session are applied in
// event-arrival order.
type Browser struct {
	serviceType string
	registry    *Registry
	serialRe    *regexp.Regexp // nil: use the raw instance name as serial

	mu     sync.Mutex
	status BrowserStatus
	cancel context.CancelFunc
	wg     *sync.WaitGroup // per-session; replaced on every Start

	now nowFunc
}

// NewBrowser creates a browser for the given service type writing into
// registry. serialRe, when non-nil, extracts the device serial from the mDNS
// instance name (first capture group); otherwise the instance name itself is
// the serial.
func NewBrowser(serviceType string, registry *Registry, serialRe *regexp.Regexp) *Browser {
	return &Browser{
		serviceType: serviceType,
		registry:    registry,
		serialRe:    serialRe,
		status:      BrowserStopped,
		now:         timeNow,
	}
}

// NewConnectBrowser creates a browser for connect advertisements, extracting
// serials from "adb-<serial>-<suffix>" instance names.
func NewConnectBrowser(registry *Registry) *Browser {
	return NewBrowser(ConnectService, registry, serialPattern)
}

// NewPairingBrowser creates a browser for pairing advertisements.
func NewPairingBrowser(registry *Registry) *Browser {
	return NewBrowser(PairingService, registry, nil)
}

// Status returns the browser's current lifecycle state.
func (b *Browser) Status() BrowserStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Start binds the mDNS resolver and begins browsing. Calling Start while the
// browser is already running is a no-op. A bind failure is returned as a
// DiscoveryError and leaves the browser in the error state.
func (b *Browser) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == BrowserRunning || b.status == BrowserStarting {
		return nil
	}
	b.status = BrowserStarting

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		b.status = BrowserError
		return &DiscoveryError{ServiceType: b.serviceType, Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan *zeroconf.ServiceEntry, 32)
	if err := resolver.Browse(ctx, b.serviceType, "local.", entries); err != nil {
		cancel()
		b.status = BrowserError
		return &DiscoveryError{ServiceType: b.serviceType, Err: err}
	}

	b.cancel = cancel
	b.wg = new(sync.WaitGroup)
	b.begin(ctx, entries)
	b.status = BrowserRunning
	return nil
}

// begin launches the consumer goroutine draining entries into the registry.
func (b *Browser) begin(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) {
	wg := b.wg
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				b.apply(entry)
			}
		}
	}()
}

// apply translates one resolved advertisement into a registry operation. A
// withdrawn service (goodbye packet, TTL 0) marks the entry offline so the
// last-known location stays queryable.
func (b *Browser) apply(entry *zeroconf.ServiceEntry) {
	info, ok := b.extract(entry)
	if !ok {
		return
	}
	if entry.TTL == 0 {
		b.registry.MarkOffline(info.Serial)
		return
	}
	b.registry.Upsert(info)
}

// extract pulls (serial, ip, port) out of a resolved service entry.
func (b *Browser) extract(entry *zeroconf.ServiceEntry) (ServiceInfo, bool) {
	if len(entry.AddrIPv4) == 0 {
		return ServiceInfo{}, false
	}
	serial := entry.Instance
	if b.serialRe != nil {
		m := b.serialRe.FindStringSubmatch(entry.Instance)
		if m == nil {
			return ServiceInfo{}, false
		}
		serial = m[1]
	} else if idx := strings.Index(serial, "."); idx != -1 {
		serial = serial[:idx]
	}
	return ServiceInfo{
		Serial:   serial,
		IP:       entry.AddrIPv4[0].String(),
		Port:     entry.Port,
		LastSeen: b.now(),
	}, true
}

// Stop cancels the browse and blocks until the consumer goroutine has
// exited. After Stop returns no further registry mutation from this session
// can occur. Stopping a browser that is not running is a no-op.
func (b *Browser) Stop() {
	b.mu.Lock()
	if b.status != BrowserRunning {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.cancel = nil
	b.status = BrowserStopped
	// waiting on the session's own group outside the lock lets a concurrent
	// Start begin a fresh session without extending this wait
	wg := b.wg
	b.wg = nil
	b.mu.Unlock()
	wg.Wait()
}
