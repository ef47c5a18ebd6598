package connection

// Status is the TCP-connection-level state of one device, owned and mutated
// only by the Orchestrator.
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusDiscovered   Status = "discovered"
	StatusPairing      Status = "pairing"
	StatusPaired       Status = "paired"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusFailed       Status = "failed"
	StatusDisconnected Status = "disconnected"
)

// Result is the outcome of one connection attempt for one device.
type Result struct {
	Serial string
	Status Status
	Err    error
}

// BatchResult aggregates per-device results of a multi-device operation. A
// failure on one device never removes the results of the others.
type BatchResult struct {
	Results []Result
}

// Connected returns the serials that ended up connected.
func (b BatchResult) Connected() []string {
	var serials []string
	for _, r := range b.Results {
		if r.Status == StatusConnected {
			serials = append(serials, r.Serial)
		}
	}
	return serials
}

// Failed returns the results that carry an error.
func (b BatchResult) Failed() []Result {
	var failed []Result
	for _, r := range b.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// AllConnected reports whether every device in the batch connected.
func (b BatchResult) AllConnected() bool {
	for _, r := range b.Results {
		if r.Status != StatusConnected {
			return false
		}
	}
	return len(b.Results) > 0
}
