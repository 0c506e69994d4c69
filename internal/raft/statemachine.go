package raft

import "sync"

// Event is a stimulus delivered to the StateMachine. Events arrive from
// timers and from Context's RPC handlers; the StateMachine itself never
// touches term/vote/log state directly, it only decides role transitions
// and invokes entry actions on its Driver.
type Event int

const (
	// EventInit starts the engine: Standby -> Follower.
	EventInit Event = iota
	// EventElectionTimeout fires when no valid heartbeat arrived in time.
	EventElectionTimeout
	// EventVoteGrantedMajority fires once a Candidate collects a quorum
	// of votes in its own term.
	EventVoteGrantedMajority
	// EventHigherTermObserved fires whenever any message carries a term
	// greater than the local current term, and also when a Leader or
	// Candidate accepts an AppendEntries carrying its own term.
	EventHigherTermObserved
	// EventBroadcastTick fires on the leader's periodic broadcast timer.
	EventBroadcastTick
	// EventAppendEntriesFromLeader fires when a structurally valid
	// AppendEntries (term >= ours) is accepted from a leader.
	EventAppendEntriesFromLeader
	// EventShutdown fires on node shutdown.
	EventShutdown
)

// Driver is the narrow back-channel the StateMachine uses to trigger entry
// actions, implemented by Context and injected at construction. This
// replaces a direct FSM -> *Context reference: the FSM only ever sees this
// interface, so Context can own both the event source (RPC handlers,
// timers) and the event sink (the FSM) without a reference cycle between
// concrete types.
type Driver interface {
	StartElectionTimer()
	StopElectionTimer()
	StartBroadcastTimer()
	StopBroadcastTimer()
	IncreaseTerm()
	VoteForMe()
	RequestVote()
	Broadcast()
	InitPeerCursors()
	AbandonPendingCommits()
}

// Observer is notified of every role transition. lifecycle.Bridge is the
// production implementation.
type Observer interface {
	OnRoleChanged(from, to Role)
}

// StateMachine is the Raft role FSM: Standby -> Follower -> Candidate ->
// Leader, with back-edges to Follower on term increase or loss of quorum
// evidence. It holds no Raft state of its own beyond the current role; all
// term/vote/log state lives in Context.
type StateMachine struct {
	driver Driver

	mu        sync.Mutex
	role      Role
	observers []Observer
}

// NewStateMachine builds a StateMachine in the Standby role, bound to
// driver for entry actions.
func NewStateMachine(driver Driver) *StateMachine {
	return &StateMachine{driver: driver, role: Standby}
}

// Subscribe registers an Observer to be notified of every future role
// transition.
func (s *StateMachine) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Role returns the current role.
func (s *StateMachine) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *StateMachine) transition(to Role) {
	s.mu.Lock()
	from := s.role
	if from == to {
		s.mu.Unlock()
		return
	}
	s.role = to
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o.OnRoleChanged(from, to)
	}
}

// Dispatch delivers an event to the FSM, running any state transition and
// its entry actions. It must be called without Context's state lock held,
// since entry actions call back into Driver methods that acquire that lock
// themselves.
func (s *StateMachine) Dispatch(event Event) {
	switch event {
	case EventShutdown:
		s.driver.StopElectionTimer()
		s.driver.StopBroadcastTimer()
		s.driver.AbandonPendingCommits()
		s.transition(Standby)
		return

	case EventHigherTermObserved:
		if s.Role() == Leader {
			s.driver.StopBroadcastTimer()
			s.driver.AbandonPendingCommits()
		}
		s.driver.StartElectionTimer()
		s.transition(Follower)
		return
	}

	switch s.Role() {
	case Standby:
		if event == EventInit {
			s.driver.StartElectionTimer()
			s.transition(Follower)
		}

	case Follower:
		switch event {
		case EventElectionTimeout:
			s.driver.IncreaseTerm()
			s.driver.VoteForMe()
			s.driver.RequestVote()
			s.driver.StartElectionTimer()
			s.transition(Candidate)
		case EventAppendEntriesFromLeader:
			s.driver.StartElectionTimer()
		}

	case Candidate:
		switch event {
		case EventElectionTimeout:
			// Stays Candidate: re-run the election with fresh entry
			// actions, no role transition to notify observers of.
			s.driver.IncreaseTerm()
			s.driver.VoteForMe()
			s.driver.RequestVote()
			s.driver.StartElectionTimer()
		case EventVoteGrantedMajority:
			s.driver.StopElectionTimer()
			s.driver.InitPeerCursors()
			s.driver.StartBroadcastTimer()
			s.transition(Leader)
			s.driver.Broadcast()
		case EventAppendEntriesFromLeader:
			s.driver.StartElectionTimer()
			s.transition(Follower)
		}

	case Leader:
		if event == EventBroadcastTick {
			s.driver.Broadcast()
		}
	}
}
