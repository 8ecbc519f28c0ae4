// Package connectivity reports whether the network is usable for sync and what kind it is.
package connectivity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iudanet/gophsync/internal/broadcast"
)

// Kind classifies the active network.
type Kind int

const (
	KindNone Kind = iota
	KindWifi
	KindEthernet
	KindCellular
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindWifi:
		return "wifi"
	case KindEthernet:
		return "ethernet"
	case KindCellular:
		return "cellular"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is a connectivity snapshot.
type State struct {
	Kind      Kind
	Connected bool
	Metered   bool
}

// Requirement is the network condition a sync needs.
type Requirement int

const (
	// RequireAny accepts any connected network.
	RequireAny Requirement = iota
	// RequireWifi accepts only wifi or ethernet.
	RequireWifi
	// RequireUnmetered accepts only networks that are not metered.
	RequireUnmetered
)

func (r Requirement) String() string {
	switch r {
	case RequireAny:
		return "any"
	case RequireWifi:
		return "wifi"
	case RequireUnmetered:
		return "unmetered"
	default:
		return fmt.Sprintf("Requirement(%d)", int(r))
	}
}

// ParseRequirement parses "any", "wifi" or "unmetered".
func ParseRequirement(s string) (Requirement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return RequireAny, nil
	case "wifi", "wifi_only":
		return RequireWifi, nil
	case "unmetered", "unmetered_only":
		return RequireUnmetered, nil
	default:
		return RequireAny, fmt.Errorf("unknown connectivity requirement %q", s)
	}
}

// Satisfied reports whether st meets the requirement.
func (r Requirement) Satisfied(st State) bool {
	if !st.Connected {
		return false
	}
	switch r {
	case RequireWifi:
		return st.Kind == KindWifi || st.Kind == KindEthernet
	case RequireUnmetered:
		return !st.Metered
	default:
		return true
	}
}

// Monitor is the connectivity observable consumed by the sync engine.
type Monitor interface {
	// Current returns the latest known state.
	Current(ctx context.Context) State

	// Subscribe returns a channel of state changes and a cancel func.
	// Only changes after the call are delivered.
	Subscribe() (<-chan State, func())
}

// Manual is a Monitor whose state is set by the caller.
// It is used when the platform offers no detection, and in tests.
type Manual struct {
	changes *broadcast.Broadcaster[State]
	state   State
	mu      sync.RWMutex
}

var _ Monitor = (*Manual)(nil)

// NewManual creates a monitor with an initial state.
func NewManual(initial State) *Manual {
	return &Manual{
		state:   initial,
		changes: broadcast.New[State](4),
	}
}

// Online returns the state of a connected unmetered network of kind k.
func Online(k Kind) State {
	return State{Kind: k, Connected: true, Metered: k == KindCellular}
}

// Offline returns the disconnected state.
func Offline() State {
	return State{Kind: KindNone}
}

// Current returns the last state passed to Set.
func (m *Manual) Current(context.Context) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe implements Monitor.
func (m *Manual) Subscribe() (<-chan State, func()) {
	return m.changes.Subscribe()
}

// Set updates the state and notifies subscribers if it changed.
func (m *Manual) Set(st State) {
	m.mu.Lock()
	changed := m.state != st
	m.state = st
	m.mu.Unlock()

	if changed {
		m.changes.Publish(st)
	}
}

// Close releases subscribers.
func (m *Manual) Close() {
	m.changes.Close()
}
