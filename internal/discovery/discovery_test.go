package discovery

import (
	"errors"
	"testing"
)

func TestDiscoveryStartTwice(t *testing.T) {
	d := NewDiscovery()
	d.started = true // simulate a running listener without binding the network

	err := d.StartDiscoveryListener()
	if err == nil {
		t.Fatal("second start did not fail")
	}
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T, want *DiscoveryError", err)
	}
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("error does not wrap ErrAlreadyStarted: %v", err)
	}
}

func TestDiscoveryStatusForDevice(t *testing.T) {
	d := NewDiscovery()
	d.registry.Upsert(testInfo("ON1", "10.0.0.1"))
	d.registry.Upsert(testInfo("GONE", "10.0.0.2"))
	d.registry.MarkOffline("GONE")

	cases := []struct {
		name string
		info ServiceInfo
		want AdvertStatus
	}{
		{"same address", testInfo("ON1", "10.0.0.1"), StatusUpdated},
		{"address changed", testInfo("ON1", "10.0.0.9"), StatusChanged},
		{"withdrawn", testInfo("GONE", "10.0.0.2"), StatusDown},
		{"never seen", testInfo("NEW", "10.0.0.3"), StatusUnknown},
	}
	for _, tc := range cases {
		if got := d.StatusForDevice(tc.info); got != tc.want {
			t.Errorf("%s: status = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDiscoveryRegistryRetainedAfterStop(t *testing.T) {
	d := NewDiscovery()
	d.registry.Upsert(testInfo("SER1", "10.0.0.1"))
	d.started = true

	d.StopDiscoveryListener()
	if d.Started() {
		t.Fatal("still started after stop")
	}
	if _, ok := d.ServiceInfoFor("SER1"); !ok {
		t.Fatal("registry cleared by stop; last-known state must remain queryable")
	}

	// stopping again is a no-op
	d.StopDiscoveryListener()
}

func TestDiscoveryPartitionAccessors(t *testing.T) {
	d := NewDiscovery()
	d.registry.Upsert(testInfo("A", "10.0.0.1"))
	d.registry.Upsert(testInfo("B", "10.0.0.2"))
	d.registry.MarkOffline("B")

	if online := d.OnlineDevices(); len(online) != 1 || online["A"].IP != "10.0.0.1" {
		t.Errorf("OnlineDevices = %v", online)
	}
	if offline := d.OfflineDevices(); len(offline) != 1 || offline["B"].IP != "10.0.0.2" {
		t.Errorf("OfflineDevices = %v", offline)
	}
	if _, ok := d.ServiceInfoFor("B"); ok {
		t.Error("ServiceInfoFor returned an offline device")
	}
}
