package adb

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRun returns a client whose command runner replays canned output and
// records the invocations it sees.
func fakeRun(t *testing.T, output string, err error) (*Client, *[][]string) {
	t.Helper()
	var calls [][]string
	c := NewClient("")
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		return []byte(output), err
	}
	return c, &calls
}

func TestParseDeviceList(t *testing.T) {
	out := `List of devices attached
R5CR30XXXX	device usb:1-4 product:q2q model:Quest_2 transport_id:1
192.168.1.50:5555	device product:q3 model:Quest_3 transport_id:2
emulator-5554	offline transport_id:3

`
	devices := parseDeviceList(out)
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	if devices[0].Serial != "R5CR30XXXX" || devices[0].ConnType != USB {
		t.Errorf("device 0 = %+v, want usb serial R5CR30XXXX", devices[0])
	}
	if !devices[0].IsOnline() {
		t.Errorf("device 0 should be online")
	}
	if devices[1].ConnType != WiFi || devices[1].Model != "Quest_3" {
		t.Errorf("device 1 = %+v, want wifi Quest_3", devices[1])
	}
	if devices[2].IsOnline() {
		t.Errorf("offline device reported online")
	}
}

func TestPairSuccess(t *testing.T) {
	c, calls := fakeRun(t, "Successfully paired to 192.168.1.50:37123 [guid=adb-xyz]", nil)
	ok, err := c.Pair(context.Background(), "192.168.1.50:37123", "pw123")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if !ok {
		t.Fatal("Pair reported failure on success output")
	}
	got := (*calls)[0]
	want := []string{"adb", "pair", "192.168.1.50:37123", "pw123"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("invoked %v, want %v", got, want)
	}
}

func TestPairRejected(t *testing.T) {
	c, _ := fakeRun(t, "Failed: Wrong password or connection was dropped.", nil)
	ok, err := c.Pair(context.Background(), "192.168.1.50:37123", "pw123")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if ok {
		t.Fatal("Pair reported success on rejection output")
	}
}

func TestConnect(t *testing.T) {
	c, _ := fakeRun(t, "connected to 192.168.1.50:5555", nil)
	if err := c.Connect(context.Background(), "192.168.1.50:5555"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	c, _ := fakeRun(t, "failed to connect to 192.168.1.50:5555", nil)
	if err := c.Connect(context.Background(), "192.168.1.50:5555"); err == nil {
		t.Fatal("Connect succeeded on failure output")
	}
}

func TestDisconnectNoSuchDevice(t *testing.T) {
	c, _ := fakeRun(t, "error: no such device '192.168.1.50:5555'", errors.New("exit status 1"))
	if err := c.Disconnect(context.Background(), "192.168.1.50:5555"); err != nil {
		t.Fatalf("Disconnect of unknown device should be a no-op, got %v", err)
	}
}

func TestIsConnected(t *testing.T) {
	out := "List of devices attached\n192.168.1.50:5555\tdevice\n192.168.1.60:5555\toffline\n"
	c, _ := fakeRun(t, out, nil)

	ok, err := c.IsConnected(context.Background(), "192.168.1.50:5555")
	if err != nil || !ok {
		t.Errorf("IsConnected(connected) = %v, %v; want true", ok, err)
	}
	ok, err = c.IsConnected(context.Background(), "192.168.1.60:5555")
	if err != nil || ok {
		t.Errorf("IsConnected(offline) = %v, %v; want false", ok, err)
	}
	ok, err = c.IsConnected(context.Background(), "192.168.1.70:5555")
	if err != nil || ok {
		t.Errorf("IsConnected(unknown) = %v, %v; want false", ok, err)
	}
}
