package raft

import (
	"math/rand"
	"sync"
	"time"
)

// Clock abstracts timer creation so tests can drive virtual time
// deterministically instead of sleeping in real time. The teacher's
// randomTimeout helper becomes a method here so the FSM's property tests
// (split-vote recovery, randomized-timeout sampling) can substitute a fake
// implementation.
type Clock interface {
	// After returns a channel that receives the current time once d has
	// elapsed.
	After(d time.Duration) <-chan time.Time
	// Now returns the current time.
	Now() time.Time
}

// systemClock is the production Clock, backed by the standard library.
type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (systemClock) Now() time.Time                         { return time.Now() }

// SystemClock is the default Clock used outside of tests.
var SystemClock Clock = systemClock{}

// Timers owns the election and broadcast timer state for one Context. Every
// method is safe for concurrent use; arming a timer always (re)starts from
// a fresh duration, and stopping is synchronous: once Stop returns, no
// pending callback for that arm will fire. Both timers are driven entirely
// through clock, so a fake Clock substituted in tests fully controls when
// fire/tick callbacks run.
type Timers struct {
	clock Clock

	mu            sync.Mutex
	rng           *rand.Rand
	electionMin   time.Duration
	electionMax   time.Duration
	broadcastTick time.Duration

	electionGen  uint64
	electionStop chan struct{}

	broadcastStop chan struct{}
	broadcasting  bool
}

// NewTimers builds a Timers with the given election range and broadcast
// period. broadcastTick must be strictly less than electionMin; NewTimers
// does not check this, config.NodeConfig.Validate does.
func NewTimers(clock Clock, electionMin, electionMax, broadcastTick time.Duration, seed int64) *Timers {
	if clock == nil {
		clock = SystemClock
	}
	return &Timers{
		clock:         clock,
		rng:           rand.New(rand.NewSource(seed)),
		electionMin:   electionMin,
		electionMax:   electionMax,
		broadcastTick: broadcastTick,
	}
}

func (t *Timers) randomElectionTimeout() time.Duration {
	t.mu.Lock()
	span := int64(t.electionMax - t.electionMin)
	var jitter int64
	if span > 0 {
		jitter = t.rng.Int63n(span + 1)
	}
	base := t.electionMin
	t.mu.Unlock()
	return base + time.Duration(jitter)
}

// StartElectionTimer arms a one-shot election timer with a freshly sampled
// random duration in [electionMin, electionMax]. fire is invoked exactly
// once, from a new goroutine, unless the timer is stopped or reset first.
// Any arm still outstanding from a previous Start is discarded first, the
// same way a fresh call to time.AfterFunc would replace a prior one.
func (t *Timers) StartElectionTimer(fire func()) {
	d := t.randomElectionTimeout()

	t.mu.Lock()
	t.electionGen++
	gen := t.electionGen
	if t.electionStop != nil {
		close(t.electionStop)
	}
	stop := make(chan struct{})
	t.electionStop = stop
	deadline := t.clock.After(d)
	t.mu.Unlock()

	go func() {
		select {
		case <-deadline:
		case <-stop:
			return
		}
		t.mu.Lock()
		current := gen == t.electionGen
		t.mu.Unlock()
		if current {
			fire()
		}
	}()
}

// StopElectionTimer cancels the election timer. After it returns, no
// pending arm's callback will invoke fire, and the goroutine waiting on the
// arm's deadline is released immediately rather than left parked until the
// clock catches up to it.
func (t *Timers) StopElectionTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.electionGen++
	if t.electionStop != nil {
		close(t.electionStop)
		t.electionStop = nil
	}
}

// ResetElectionTimer is StopElectionTimer followed by StartElectionTimer.
func (t *Timers) ResetElectionTimer(fire func()) {
	t.StartElectionTimer(fire)
}

// StartBroadcastTimer arms a periodic timer at the configured broadcast
// period; tick is invoked on every period until StopBroadcastTimer is
// called. Leader-only by convention of the caller.
func (t *Timers) StartBroadcastTimer(tick func()) {
	t.mu.Lock()
	if t.broadcasting {
		t.mu.Unlock()
		return
	}
	t.broadcasting = true
	stop := make(chan struct{})
	t.broadcastStop = stop
	period := t.broadcastTick
	clock := t.clock
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-clock.After(period):
				tick()
			case <-stop:
				return
			}
		}
	}()
}

// StopBroadcastTimer idempotently stops the broadcast ticker. The running
// goroutine observes the closed stop channel on its next select and exits
// without waiting for the current period to elapse.
func (t *Timers) StopBroadcastTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.broadcasting {
		return
	}
	t.broadcasting = false
	close(t.broadcastStop)
	t.broadcastStop = nil
}
