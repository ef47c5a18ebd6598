package pairing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/FluidXR/questlink/internal/discovery"
)

// ErrNotStarted is returned when pairing artifacts are requested before
// Start has run.
var ErrNotStarted = errors.New("pairing session not started")

// ErrNoDevicesPaired is returned by the scoped Pair flow when no candidate
// completed the handshake before the listener was stopped.
var ErrNoDevicesPaired = errors.New("no devices paired")

// Toolchain is the slice of the ADB client the coordinator needs: the
// wireless-pairing handshake against one candidate address.
type Toolchain interface {
	Pair(ctx context.Context, addr, password string) (bool, error)
}

// State describes the coordinator's position in the pairing flow.
type State string

const (
	StateIdle     State = "idle"
	StateBrowsing State = "browsing"
	StatePairing  State = "pairing-in-progress"
	StatePaired   State = "paired"
	StateFailed   State = "failed"
)

// Result is the outcome of one pairing attempt against one candidate.
type Result struct {
	Serial string
	Addr   string
	Paired bool
	Err    error
}

type browserSession interface {
	Start() error
	Stop()
}

// Options configures a pairing coordinator. Zero values get defaults.
type Options struct {
	ServiceName     string        // pairing service-name prefix shown in the QR payload
	FreshnessWindow time.Duration // how recent an advertisement must be to count as a candidate
	PairTimeout     time.Duration // per-candidate handshake bound
	MaxAttempts     int           // pairing rounds attempted by the scoped Pair flow
	CandidateWait   time.Duration // how long the scoped Pair flow waits for a device to scan the code
	PollInterval    time.Duration // probe cadence while waiting for candidates
}

func (o *Options) defaults() {
	if o.ServiceName == "" {
		o.ServiceName = "questlink"
	}
	if o.FreshnessWindow <= 0 {
		o.FreshnessWindow = 30 * time.Second
	}
	if o.PairTimeout <= 0 {
		o.PairTimeout = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.CandidateWait <= 0 {
		o.CandidateWait = 2 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
}

// Pairing generates a pairing secret and QR payload, browses for pairing
// advertisements, and attempts the ADB wireless-pairing handshake against
// each discovered candidate.
type Pairing struct {
	adb  Toolchain
	opts Options

	mu       sync.Mutex
	state    State
	session  *Session
	registry *discovery.Registry
	browser  browserSession

	newBrowser func(*discovery.Registry) browserSession
	now        func() time.Time
}

// New creates a pairing coordinator using adb for handshakes.
func New(adb Toolchain, opts Options) *Pairing {
	opts.defaults()
	return &Pairing{
		adb:   adb,
		opts:  opts,
		state: StateIdle,
		newBrowser: func(r *discovery.Registry) browserSession {
			return discovery.NewPairingBrowser(r)
		},
		now: time.Now,
	}
}

// State returns the coordinator's current state.
func (p *Pairing) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start generates a fresh session and begins browsing for pairing
// advertisements. Re-entry while already browsing is a no-op; the session
// and its secret are kept.
func (p *Pairing) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateBrowsing || p.state == StatePairing {
		return nil
	}
	// a previous session may have finished paired/failed with its browser
	// still running; stop it before replacing it or its listener leaks
	if p.browser != nil {
		p.browser.Stop()
		p.browser = nil
	}
	session := newSession(p.opts.ServiceName)
	registry := discovery.NewRegistry()
	browser := p.newBrowser(registry)
	if err := browser.Start(); err != nil {
		p.state = StateFailed
		return err
	}
	p.session = &session
	p.registry = registry
	p.browser = browser
	p.state = StateBrowsing
	return nil
}

// QRString returns the QR-encodable pairing payload for the current session.
func (p *Pairing) QRString() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return "", ErrNotStarted
	}
	return p.session.QRPayload(), nil
}

// QRImage renders the pairing payload as a size×size PNG.
func (p *Pairing) QRImage(size int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, ErrNotStarted
	}
	return qrcode.Encode(p.session.QRPayload(), qrcode.Medium, size)
}

// Password returns the current session's pairing secret.
func (p *Pairing) Password() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return "", ErrNotStarted
	}
	return p.session.Password, nil
}

// HasDeviceToPair reports whether at least one pairing advertisement has
// been seen within the freshness window.
func (p *Pairing) HasDeviceToPair() bool {
	p.mu.Lock()
	registry := p.registry
	p.mu.Unlock()
	if registry == nil {
		return false
	}
	cutoff := p.now().Add(-p.opts.FreshnessWindow)
	for _, info := range registry.Online() {
		if info.LastSeen.After(cutoff) {
			return true
		}
	}
	return false
}

// PairDevices attempts the handshake against every currently discovered
// candidate. Each attempt succeeds or fails independently; candidates that
// fail are left for a future attempt and are not retried here. The boolean
// summary is true iff at least one candidate paired.
func (p *Pairing) PairDevices(ctx context.Context) ([]Result, bool) {
	p.mu.Lock()
	if p.session == nil || p.registry == nil {
		p.mu.Unlock()
		return nil, false
	}
	password := p.session.Password
	registry := p.registry
	p.state = StatePairing
	p.mu.Unlock()

	var results []Result
	anyPaired := false
	for serial, info := range registry.Online() {
		attemptCtx, cancel := context.WithTimeout(ctx, p.opts.PairTimeout)
		paired, err := p.adb.Pair(attemptCtx, info.Addr(), password)
		cancel()
		results = append(results, Result{
			Serial: serial,
			Addr:   info.Addr(),
			Paired: paired,
			Err:    err,
		})
		if paired {
			anyPaired = true
		}
	}

	p.mu.Lock()
	if anyPaired {
		p.state = StatePaired
	} else {
		p.state = StateFailed
	}
	p.mu.Unlock()
	return results, anyPaired
}

// StopPairListener stops the browser session and discards the current
// session. Terminal for this session: a new Start generates a new secret.
func (p *Pairing) StopPairListener() {
	p.mu.Lock()
	browser := p.browser
	p.browser = nil
	p.session = nil
	p.registry = nil
	if p.state == StateBrowsing || p.state == StatePairing {
		p.state = StateIdle
	}
	p.mu.Unlock()
	if browser != nil {
		browser.Stop()
	}
}

// Pair is the scoped pairing flow: it starts a session, hands the QR payload
// to show, waits for a device to scan the code, then attempts PairDevices up
// to MaxAttempts rounds. Scanning takes human time, so after show returns the
// flow blocks (bounded by ctx and CandidateWait) until a fresh pairing
// advertisement exists before the first handshake is tried. The stop path
// runs on every exit, including when show fails, so a browser session can
// never outlive the caller's usage window.
func (p *Pairing) Pair(ctx context.Context, show func(qr string) error) error {
	if err := p.Start(); err != nil {
		return err
	}
	defer p.StopPairListener()

	qr, err := p.QRString()
	if err != nil {
		return err
	}
	if err := show(qr); err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		if err := p.awaitCandidate(ctx); err != nil {
			return err
		}
		if _, ok := p.PairDevices(ctx); ok {
			return nil
		}
		if attempt+1 >= p.opts.MaxAttempts {
			return ErrNoDevicesPaired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.opts.PollInterval):
		}
	}
}

// awaitCandidate blocks until a pairing advertisement is fresh enough to
// attempt the handshake against, ctx is cancelled, or CandidateWait elapses.
func (p *Pairing) awaitCandidate(ctx context.Context) error {
	deadline := time.Now().Add(p.opts.CandidateWait)
	for !p.HasDeviceToPair() {
		if time.Now().After(deadline) {
			return fmt.Errorf("no device scanned the pairing code within %s: %w",
				p.opts.CandidateWait, ErrNoDevicesPaired)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("no device scanned the pairing code: %w", ctx.Err())
		case <-time.After(p.opts.PollInterval):
		}
	}
	return nil
}
