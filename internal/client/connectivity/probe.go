package connectivity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/iudanet/gophsync/internal/broadcast"
)

// DefaultProbeInterval is how often Probe dials the target.
const DefaultProbeInterval = 15 * time.Second

// Dialer opens network connections; *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Probe detects connectivity by periodically opening a TCP connection to
// the sync server. It cannot tell network kinds apart and reports
// reachable networks with the configured kind.
type Probe struct {
	dialer   Dialer
	changes  *broadcast.Broadcaster[State]
	logger   *slog.Logger
	cancel   context.CancelFunc
	address  string
	state    State
	wg       sync.WaitGroup
	interval time.Duration
	timeout  time.Duration
	kind     Kind
	mu       sync.RWMutex
}

var _ Monitor = (*Probe)(nil)

// ProbeOption configures Probe.
type ProbeOption func(*Probe)

// WithDialer replaces the dialer.
func WithDialer(d Dialer) ProbeOption {
	return func(p *Probe) { p.dialer = d }
}

// WithInterval sets the probe period.
func WithInterval(d time.Duration) ProbeOption {
	return func(p *Probe) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithKind sets the kind reported for a reachable network.
func WithKind(k Kind) ProbeOption {
	return func(p *Probe) { p.kind = k }
}

// NewProbe creates a probe for host:port address.
func NewProbe(address string, logger *slog.Logger, opts ...ProbeOption) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Probe{
		address:  address,
		dialer:   &net.Dialer{},
		changes:  broadcast.New[State](4),
		logger:   logger,
		interval: DefaultProbeInterval,
		timeout:  3 * time.Second,
		kind:     KindOther,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs one probe synchronously, then keeps probing in the background until ctx is done or Stop is called.
func (p *Probe) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.Check(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Check(ctx)
			}
		}
	}()
}

// Stop ends background probing and closes subscriber channels.
func (p *Probe) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.changes.Close()
}

// Check probes once and returns the resulting state.
func (p *Probe) Check(ctx context.Context) State {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	st := Offline()
	conn, err := p.dialer.DialContext(dialCtx, "tcp", p.address)
	if err == nil {
		_ = conn.Close()
		st = Online(p.kind)
	}

	p.mu.Lock()
	changed := p.state != st
	p.state = st
	p.mu.Unlock()

	if changed {
		p.logger.Info("Connectivity changed", "address", p.address, "connected", st.Connected, "kind", st.Kind.String())
		p.changes.Publish(st)
	}
	return st
}

// Current implements Monitor.
func (p *Probe) Current(context.Context) State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Subscribe implements Monitor.
func (p *Probe) Subscribe() (<-chan State, func()) {
	return p.changes.Subscribe()
}
