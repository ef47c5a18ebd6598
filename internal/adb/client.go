package adb

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client wraps ADB command-line calls. The pairing handshake and the
// connect/disconnect operations are delegated entirely to the adb binary;
// this client only parses its output.
type Client struct {
	path string
	run  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewClient creates a new ADB client. If path is empty, "adb" is resolved
// from PATH.
func NewClient(path string) *Client {
	if path == "" {
		path = "adb"
	}
	return &Client{path: path, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Devices returns all devices known to the ADB server.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, err := c.run(ctx, c.path, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w\n%s", err, out)
	}
	return parseDeviceList(string(out)), nil
}

// Pair runs the ADB wireless-pairing handshake against addr using the given
// pairing password. It returns true only when adb reports the handshake
// succeeded; a rejected or timed-out handshake returns false without error so
// callers can treat it as a per-device outcome.
func (c *Client) Pair(ctx context.Context, addr, password string) (bool, error) {
	out, err := c.run(ctx, c.path, "pair", addr, password)
	if err != nil {
		return false, fmt.Errorf("adb pair %s: %w\n%s", addr, err, out)
	}
	return strings.Contains(string(out), fmt.Sprintf("Successfully paired to %s", addr)), nil
}

// Connect connects to a wireless ADB device at addr ("ip:port").
func (c *Client) Connect(ctx context.Context, addr string) error {
	out, err := c.run(ctx, c.path, "connect", addr)
	if err != nil {
		return fmt.Errorf("adb connect %s: %w\n%s", addr, err, out)
	}
	output := string(out)
	if strings.Contains(output, "connected") && !strings.Contains(output, "failed to connect") {
		return nil
	}
	return fmt.Errorf("adb connect %s: %s", addr, strings.TrimSpace(output))
}

// Disconnect disconnects the wireless device at addr. Disconnecting a device
// that is not connected is not an error.
func (c *Client) Disconnect(ctx context.Context, addr string) error {
	out, err := c.run(ctx, c.path, "disconnect", addr)
	if err != nil {
		if strings.Contains(string(out), "no such device") {
			return nil
		}
		return fmt.Errorf("adb disconnect %s: %w\n%s", addr, err, out)
	}
	return nil
}

// IsConnected reports whether addr appears in the ADB server's device list
// in a non-offline state.
func (c *Client) IsConnected(ctx context.Context, addr string) (bool, error) {
	out, err := c.run(ctx, c.path, "devices")
	if err != nil {
		return false, fmt.Errorf("adb devices: %w\n%s", err, out)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, addr) && !strings.Contains(line, "offline") {
			return true, nil
		}
	}
	return false, nil
}

// TCPIP restarts the device's adbd listening on the given TCP port. Used to
// pin devices to a stable port after the first connection.
func (c *Client) TCPIP(ctx context.Context, addr string, port int) error {
	out, err := c.run(ctx, c.path, "-s", addr, "tcpip", fmt.Sprintf("%d", port))
	if err != nil {
		return fmt.Errorf("adb -s %s tcpip %d: %w\n%s", addr, port, err, out)
	}
	return nil
}

// KillServer stops the local ADB server.
func (c *Client) KillServer(ctx context.Context) error {
	out, err := c.run(ctx, c.path, "kill-server")
	if err != nil {
		return fmt.Errorf("adb kill-server: %w\n%s", err, out)
	}
	return nil
}

// StartServer starts the local ADB server.
func (c *Client) StartServer(ctx context.Context) error {
	out, err := c.run(ctx, c.path, "start-server")
	if err != nil {
		return fmt.Errorf("adb start-server: %w\n%s", err, out)
	}
	return nil
}

// parseDeviceList parses `adb devices -l` output.
func parseDeviceList(output string) []Device {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "List of") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{
			Serial: fields[0],
			State:  fields[1],
		}
		// Wireless devices show up as ip:port serials
		if strings.Contains(d.Serial, ":") {
			d.ConnType = WiFi
		} else {
			d.ConnType = USB
		}
		for _, f := range fields[2:] {
			parts := strings.SplitN(f, ":", 2)
			if len(parts) != 2 {
				continue
			}
			switch parts[0] {
			case "model":
				d.Model = parts[1]
			case "product":
				d.Product = parts[1]
			case "transport_id":
				d.TransportID = parts[1]
			}
		}
		devices = append(devices, d)
	}
	return devices
}
