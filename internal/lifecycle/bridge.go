// Package lifecycle maps Raft role transitions onto the application-facing
// activation state: a node is "active" only while it holds leadership, and
// "standby" before the engine has started. Application-level publishers
// subscribe here instead of watching Raft roles directly.
package lifecycle

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/daoran/foros/internal/raft"
)

// State is the application-visible activation state derived from the Raft
// role.
type State int

const (
	// StateStandby is the state before the engine has been initialized,
	// or after Shutdown.
	StateStandby State = iota
	// StateInactive covers both Follower and Candidate: the node does
	// not currently lead the cluster.
	StateInactive
	// StateActive means the node holds leadership.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateStandby:
		return "standby"
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Publisher is an application-facing component that activates only while
// its node is leader. It is registered with the Bridge and deregistered
// explicitly when it stops publishing (Go has no ergonomic weak
// references, so the spec's "weak list of publishers" becomes a plain,
// explicitly-managed slice here, pruned on Remove rather than on GC).
type Publisher interface {
	OnStandby()
	OnActivated()
	OnDeactivated()
}

// MetricsRecorder receives the node's current lifecycle state. The
// internal/metrics package implements this against a Prometheus gauge.
type MetricsRecorder interface {
	SetState(state State)
}

type noopMetrics struct{}

func (noopMetrics) SetState(State) {}

// Bridge observes a StateMachine's role transitions and fans out
// on_standby/on_activated/on_deactivated to the host application and to
// every registered Publisher.
type Bridge struct {
	host    Publisher
	metrics MetricsRecorder
	logger  zerolog.Logger

	mu         sync.Mutex
	publishers []Publisher
	state      State
}

// NewBridge builds a Bridge that notifies host directly and, optionally,
// records state transitions via metrics (pass nil to skip metrics).
func NewBridge(host Publisher, metrics MetricsRecorder, logger zerolog.Logger) *Bridge {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Bridge{host: host, metrics: metrics, logger: logger, state: StateStandby}
}

// Register adds a Publisher that will receive every future activation
// event. It does not replay the current state; callers that need the
// current state immediately should call State().
func (b *Bridge) Register(p Publisher) {
	b.mu.Lock()
	b.publishers = append(b.publishers, p)
	b.mu.Unlock()
}

// Remove deregisters a previously-registered Publisher.
func (b *Bridge) Remove(p Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.publishers {
		if existing == p {
			b.publishers = append(b.publishers[:i], b.publishers[i+1:]...)
			return
		}
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OnRoleChanged implements raft.Observer: Leader maps to active,
// Follower/Candidate to inactive, Standby to standby.
func (b *Bridge) OnRoleChanged(from, to raft.Role) {
	next := roleToState(to)

	b.mu.Lock()
	prev := b.state
	if prev == next {
		b.mu.Unlock()
		return
	}
	b.state = next
	publishers := append([]Publisher(nil), b.publishers...)
	b.mu.Unlock()

	b.logger.Info().
		Str("raft_role", to.String()).
		Str("lifecycle_from", prev.String()).
		Str("lifecycle_to", next.String()).
		Msg("lifecycle state changed")
	b.metrics.SetState(next)

	notify(b.host, next)
	for _, p := range publishers {
		notify(p, next)
	}
}

func notify(p Publisher, state State) {
	if p == nil {
		return
	}
	switch state {
	case StateStandby:
		p.OnStandby()
	case StateActive:
		p.OnActivated()
	case StateInactive:
		p.OnDeactivated()
	}
}

func roleToState(r raft.Role) State {
	switch r {
	case raft.Leader:
		return StateActive
	case raft.Follower, raft.Candidate:
		return StateInactive
	default:
		return StateStandby
	}
}
