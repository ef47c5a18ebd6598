package discovery

import (
	"fmt"
	"regexp"
	"time"
)

// mDNS service types broadcast by Android devices with wireless debugging
// enabled. A device in pairing mode advertises the pairing type; an
// already-paired device advertises the connect type.
const (
	PairingService = "_adb-tls-pairing._tcp"
	ConnectService = "_adb-tls-connect._tcp"
)

// serialPattern extracts the device serial from a connect-advertisement
// instance name of the form "adb-<serial>-<suffix>".
var serialPattern = regexp.MustCompile(`^adb-(\w+)-\w+`)

// ServiceInfo is an immutable snapshot of one discovered service
// advertisement. Re-discovery replaces the whole value; fields are never
// mutated in place.
type ServiceInfo struct {
	Serial   string
	IP       string
	Port     int
	LastSeen time.Time
}

// Addr renders the connection endpoint as "ip:port".
func (s ServiceInfo) Addr() string {
	return fmt.Sprintf("%s:%d", s.IP, s.Port)
}

// nowFunc lets tests control timestamps on discovered entries.
type nowFunc func() time.Time

func timeNow() time.Time { return time.Now() }
