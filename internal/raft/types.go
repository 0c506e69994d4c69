// Package raft implements the leader-election and log-replication core of a
// small fixed-membership cluster. It is deliberately narrow: the messaging
// substrate, durable log storage, and process bootstrapping are all external
// collaborators injected at construction time.
package raft

import "fmt"

// Term is a monotonically non-decreasing election epoch. A node's current
// term never decreases; observing a higher term in any message forces
// adoption of that term and a transition to Follower with the vote cleared.
type Term uint64

// NodeID uniquely identifies a node within a cluster.
type NodeID uint32

// Role is one of the four states of the Raft role state machine.
type Role int

const (
	// Standby is the pre-initialized state, before Init() has run.
	Standby Role = iota
	// Follower replicates from a leader and votes in elections.
	Follower
	// Candidate is soliciting votes for itself in the current term.
	Candidate
	// Leader replicates its log to the cluster and serves commits.
	Leader
)

func (r Role) String() string {
	switch r {
	case Standby:
		return "standby"
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// LogEntry is a single dense, 1-based record in the replicated log.
type LogEntry struct {
	Index   uint64
	Term    Term
	Payload []byte
}

// CommitInfo describes the highest log entry known to be committed.
type CommitInfo struct {
	Index uint64
	Term  Term
}

// VoteState tracks a node's voting record for the current term. It is reset
// whenever the term changes.
type VoteState struct {
	Voted               bool
	VotedFor            NodeID
	VotesReceived       uint32
	AvailableCandidates uint32
}

func (v *VoteState) reset() {
	v.Voted = false
	v.VotedFor = 0
	v.VotesReceived = 0
	// AvailableCandidates is a cluster-size constant; it survives resets.
}
