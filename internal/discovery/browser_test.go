package discovery

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func connectEntry(instance, ip string, port int, ttl uint32) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ConnectService, "local.")
	e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	e.Port = port
	e.TTL = ttl
	return e
}

// startTestBrowser wires a browser to a caller-owned entries channel so
// tests can inject events without binding the network.
func startTestBrowser(b *Browser) chan *zeroconf.ServiceEntry {
	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan *zeroconf.ServiceEntry, 8)
	b.mu.Lock()
	b.cancel = cancel
	b.wg = new(sync.WaitGroup)
	b.status = BrowserRunning
	b.begin(ctx, entries)
	b.mu.Unlock()
	return entries
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBrowserAppliesEntriesInOrder(t *testing.T) {
	reg := NewRegistry()
	b := NewConnectBrowser(reg)
	entries := startTestBrowser(b)
	defer b.Stop()

	entries <- connectEntry("adb-SER123-abcdef", "192.168.1.20", 40001, 120)
	entries <- connectEntry("adb-SER123-abcdef", "192.168.1.21", 40002, 120)

	waitFor(t, func() bool {
		info, ok := reg.Lookup("SER123")
		return ok && info.IP == "192.168.1.21"
	})
	info, _ := reg.Lookup("SER123")
	if info.Port != 40002 {
		t.Errorf("port = %d, want 40002", info.Port)
	}
}

func TestBrowserGoodbyeMarksOffline(t *testing.T) {
	reg := NewRegistry()
	b := NewConnectBrowser(reg)
	entries := startTestBrowser(b)
	defer b.Stop()

	entries <- connectEntry("adb-SER123-abcdef", "192.168.1.20", 40001, 120)
	waitFor(t, func() bool {
		online, _ := reg.Snapshot()
		_, ok := online["SER123"]
		return ok
	})

	entries <- connectEntry("adb-SER123-abcdef", "192.168.1.20", 40001, 0)
	waitFor(t, func() bool {
		_, offline := reg.Snapshot()
		_, ok := offline["SER123"]
		return ok
	})
}

func TestBrowserIgnoresUnmatchedInstanceNames(t *testing.T) {
	reg := NewRegistry()
	b := NewConnectBrowser(reg)
	entries := startTestBrowser(b)
	defer b.Stop()

	entries <- connectEntry("printer-lobby", "192.168.1.9", 631, 120)
	entries <- connectEntry("adb-GOOD1-xyz", "192.168.1.30", 40001, 120)

	waitFor(t, func() bool {
		_, ok := reg.Lookup("GOOD1")
		return ok
	})
	online, offline := reg.Snapshot()
	if len(online)+len(offline) != 1 {
		t.Fatalf("unmatched instance name leaked into registry: %v %v", online, offline)
	}
}

func TestPairingBrowserUsesInstanceAsSerial(t *testing.T) {
	reg := NewRegistry()
	b := NewPairingBrowser(reg)
	entries := startTestBrowser(b)
	defer b.Stop()

	e := zeroconf.NewServiceEntry("Pixel 8", PairingService, "local.")
	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.40")}
	e.Port = 37001
	e.TTL = 120
	entries <- e

	waitFor(t, func() bool {
		_, ok := reg.Lookup("Pixel 8")
		return ok
	})
}

// TestBrowserStopContract verifies the key correctness contract: after Stop
// returns, no registry mutation attributable to the session can occur, even
// for events that were already in flight.
func TestBrowserStopContract(t *testing.T) {
	reg := NewRegistry()
	b := NewConnectBrowser(reg)
	entries := startTestBrowser(b)

	entries <- connectEntry("adb-BEFORE-x", "192.168.1.50", 40001, 120)
	waitFor(t, func() bool {
		_, ok := reg.Lookup("BEFORE")
		return ok
	})

	b.Stop()
	if b.Status() != BrowserStopped {
		t.Fatalf("status after Stop = %s", b.Status())
	}

	// delayed events delivered after Stop must be dropped
	entries <- connectEntry("adb-AFTER-x", "192.168.1.51", 40002, 120)
	entries <- connectEntry("adb-BEFORE-x", "192.168.1.50", 40001, 0)
	time.Sleep(50 * time.Millisecond)

	if _, ok := reg.Lookup("AFTER"); ok {
		t.Error("registry mutated after Stop returned")
	}
	online, _ := reg.Snapshot()
	if _, ok := online["BEFORE"]; !ok {
		t.Error("goodbye applied after Stop returned")
	}

	// stopping again is a no-op
	b.Stop()
}

// TestBrowserRestartGetsFreshSession verifies that each Start owns its own
// wait group, so a restart can never join the previous session's wait and a
// restarted browser still applies events.
func TestBrowserRestartGetsFreshSession(t *testing.T) {
	reg := NewRegistry()
	b := NewConnectBrowser(reg)
	startTestBrowser(b)

	b.mu.Lock()
	wg1 := b.wg
	b.mu.Unlock()

	b.Stop()

	entries := startTestBrowser(b)
	defer b.Stop()

	b.mu.Lock()
	wg2 := b.wg
	b.mu.Unlock()
	if wg2 == wg1 {
		t.Fatal("restart reused the previous session's wait group")
	}

	entries <- connectEntry("adb-FRESH-x", "192.168.1.60", 40003, 120)
	waitFor(t, func() bool {
		_, ok := reg.Lookup("FRESH")
		return ok
	})
}

func TestBrowserStartIdempotentWhileRunning(t *testing.T) {
	reg := NewRegistry()
	b := NewConnectBrowser(reg)
	startTestBrowser(b)
	defer b.Stop()

	// already running: Start must not rebind or spawn a second consumer
	if err := b.Start(); err != nil {
		t.Fatalf("Start while running: %v", err)
	}
	if b.Status() != BrowserRunning {
		t.Fatalf("status = %s, want running", b.Status())
	}
}
