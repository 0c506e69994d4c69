package raft

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextConfig carries the cluster identity and timing discipline a
// Context is built with. election_timeout_min/max and broadcast_timeout
// come straight from the node's on-disk configuration.
type ContextConfig struct {
	ClusterName            string
	LocalID                NodeID
	ElectionTimeoutMin     time.Duration
	ElectionTimeoutMax     time.Duration
	BroadcastTimeout       time.Duration
	DataReplicationEnabled bool
	Store                  DataStore
	Clock                  Clock
	Metrics                MetricsRecorder
	Logger                 zerolog.Logger
	RandSeed               int64
}

// Context owns every piece of mutable Raft state for one node: current
// term, vote record, peer table and replication cursors, pending commits,
// and the timers that drive elections and heartbeats. It hosts the two RPC
// handlers and is the sole Driver for the StateMachine it constructs.
type Context struct {
	clusterName            string
	localID                NodeID
	dataReplicationEnabled bool

	store   DataStore
	timers  *Timers
	pending *PendingCommits
	sm      *StateMachine
	metrics MetricsRecorder
	logger  zerolog.Logger

	mu          sync.Mutex
	currentTerm Term
	vote        VoteState
	peers       map[NodeID]*OtherNode
	peerOrder   []NodeID
	leaderID    NodeID
	haveLeader  bool
}

// NewContext constructs a Context in the Standby role. Initialize must be
// called with the cluster's peer ids before any RPC or timer event is
// delivered.
func NewContext(cfg ContextConfig) *Context {
	logger := cfg.Logger
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	c := &Context{
		clusterName:            cfg.ClusterName,
		localID:                cfg.LocalID,
		dataReplicationEnabled: cfg.DataReplicationEnabled,
		store:                  cfg.Store,
		pending:                NewPendingCommits(),
		metrics:                metrics,
		logger: logger.With().
			Str("cluster", cfg.ClusterName).
			Uint32("node_id", uint32(cfg.LocalID)).
			Logger(),
		peers: make(map[NodeID]*OtherNode),
	}
	c.timers = NewTimers(cfg.Clock, cfg.ElectionTimeoutMin, cfg.ElectionTimeoutMax, cfg.BroadcastTimeout, cfg.RandSeed)
	c.sm = NewStateMachine(c)
	return c
}

// StateMachine returns the node's role FSM, for wiring additional observers
// (e.g. lifecycle.Bridge) before Initialize is called.
func (c *Context) StateMachine() *StateMachine { return c.sm }

// Role returns the node's current role.
func (c *Context) Role() Role { return c.sm.Role() }

// Term returns the node's current term.
func (c *Context) Term() Term {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTerm
}

// Initialize builds the peer table from peerIDs (which must include every
// node in the cluster except the local node) and dialer, seeds available
// candidate count to the full cluster size, and dispatches the Init event
// that moves the node from Standby into Follower.
func (c *Context) Initialize(peerIDs []NodeID, dialer PeerDialer) {
	c.mu.Lock()
	for _, id := range peerIDs {
		if id == c.localID {
			continue
		}
		c.peers[id] = NewOtherNode(id, dialer.DialVote(id), dialer.DialAppend(id))
		c.peerOrder = append(c.peerOrder, id)
	}
	c.vote.AvailableCandidates = uint32(len(c.peerOrder) + 1)
	c.mu.Unlock()

	c.logger.Info().Int("peers", len(c.peerOrder)).Msg("raft context initialized")
	c.sm.Dispatch(EventInit)
}

// --- Driver implementation, invoked only from StateMachine.Dispatch. Each
// method takes c.mu itself where it touches Raft state, so Dispatch is
// always called with c.mu released. ---

// StartElectionTimer arms the randomized election timer.
func (c *Context) StartElectionTimer() {
	c.timers.StartElectionTimer(func() {
		c.sm.Dispatch(EventElectionTimeout)
	})
}

// StopElectionTimer cancels the election timer.
func (c *Context) StopElectionTimer() { c.timers.StopElectionTimer() }

// StartBroadcastTimer arms the periodic leader heartbeat/replication timer.
func (c *Context) StartBroadcastTimer() {
	c.timers.StartBroadcastTimer(func() {
		c.sm.Dispatch(EventBroadcastTick)
	})
}

// StopBroadcastTimer cancels the broadcast timer.
func (c *Context) StopBroadcastTimer() { c.timers.StopBroadcastTimer() }

// IncreaseTerm increments the current term and clears the vote record.
func (c *Context) IncreaseTerm() {
	c.mu.Lock()
	c.currentTerm++
	c.vote.reset()
	term := c.currentTerm
	c.mu.Unlock()
	c.metrics.SetTerm(uint64(term))
	c.logger.Debug().Uint64("term", uint64(term)).Msg("term increased")
}

// VoteForMe records a self-vote in the current term.
func (c *Context) VoteForMe() {
	c.mu.Lock()
	c.vote.Voted = true
	c.vote.VotedFor = c.localID
	c.vote.VotesReceived = 1
	c.mu.Unlock()
}

// InitPeerCursors resets every peer's next_index to the leader's last log
// index + 1 and match_index to 0. Invoked once on becoming Leader.
func (c *Context) InitPeerCursors() {
	lastIdx := c.store.LastIndex()
	c.mu.Lock()
	for _, id := range c.peerOrder {
		c.peers[id].ResetCursors(lastIdx)
	}
	c.leaderID = c.localID
	c.haveLeader = true
	c.mu.Unlock()
}

// AbandonPendingCommits resolves every pending commit with ErrAbandoned.
// Invoked on every transition away from Leader (and on Shutdown).
func (c *Context) AbandonPendingCommits() {
	c.pending.AbandonAll(ErrAbandoned)
	c.metrics.SetPendingCommits(0)
}

// RequestVote sends RequestVote to every peer for the current term and
// candidate log position, and funnels responses into onVoteResponse.
func (c *Context) RequestVote() {
	c.mu.Lock()
	term := c.currentTerm
	peers := append([]NodeID(nil), c.peerOrder...)
	c.mu.Unlock()

	lastIdx := c.store.LastIndex()
	lastTerm := c.store.LastTerm()
	req := &RequestVoteRequest{
		Term:         term,
		CandidateID:  c.localID,
		LastLogIndex: lastIdx,
		LastLogTerm:  lastTerm,
	}

	results := make(chan VoteResult, len(peers))
	c.mu.Lock()
	for _, id := range peers {
		c.peers[id].SendRequestVote(req, results)
	}
	c.mu.Unlock()

	go func() {
		for i := 0; i < len(peers); i++ {
			select {
			case res := <-results:
				c.onVoteResponse(term, res)
			case <-time.After(c.timers.electionMax):
				return
			}
		}
	}()
}

// onVoteResponse applies a single RequestVote response. Responses for a
// term other than the one the election round was run in are stale and
// discarded, except that a higher term always forces adoption.
func (c *Context) onVoteResponse(roundTerm Term, res VoteResult) {
	c.mu.Lock()
	if res.Term > c.currentTerm {
		c.currentTerm = res.Term
		c.vote.reset()
		c.mu.Unlock()
		c.metrics.SetTerm(uint64(res.Term))
		c.sm.Dispatch(EventHigherTermObserved)
		return
	}
	if roundTerm != c.currentTerm || c.sm.Role() != Candidate {
		c.mu.Unlock()
		return
	}
	if res.Granted {
		c.vote.VotesReceived++
	}
	elected := c.vote.VotesReceived > c.vote.AvailableCandidates/2
	c.mu.Unlock()

	if elected {
		c.sm.Dispatch(EventVoteGrantedMajority)
	}
}

// Vote implements the RequestVote decision procedure described in the spec:
// deny stale terms, adopt newer ones, and grant only to an at-least-as-
// up-to-date candidate that hasn't already voted for someone else this
// term.
func (c *Context) Vote(term Term, candidate NodeID, lastLogIndex uint64, lastLogTerm Term) (Term, bool) {
	c.mu.Lock()

	if term < c.currentTerm {
		current := c.currentTerm
		c.mu.Unlock()
		return current, false
	}

	higherTerm := term > c.currentTerm
	if higherTerm {
		c.currentTerm = term
		c.vote.reset()
	}

	ourIdx, ourTerm := c.store.LastIndex(), c.store.LastTerm()
	upToDate := lastLogTerm > ourTerm || (lastLogTerm == ourTerm && lastLogIndex >= ourIdx)
	canVote := !c.vote.Voted || c.vote.VotedFor == candidate
	granted := canVote && upToDate
	if granted {
		c.vote.Voted = true
		c.vote.VotedFor = candidate
	}
	current := c.currentTerm
	c.mu.Unlock()

	if higherTerm {
		c.metrics.SetTerm(uint64(current))
		c.sm.Dispatch(EventHigherTermObserved)
	}
	if granted {
		c.StartElectionTimer()
	}
	return current, granted
}

// OnRequestVoteRequested implements RequestVoteServer.
func (c *Context) OnRequestVoteRequested(req *RequestVoteRequest) *RequestVoteResponse {
	term, granted := c.Vote(req.Term, req.CandidateID, req.LastLogIndex, req.LastLogTerm)
	return &RequestVoteResponse{Term: term, VoteGranted: granted}
}

// Broadcast builds and sends one AppendEntries per peer, using each peer's
// current next_index as the replication cursor. When
// data_replication_enabled is false, Entries is always empty (pure
// heartbeat, election only). Invoked on every broadcast tick and
// immediately on becoming Leader or receiving CommitData.
func (c *Context) Broadcast() {
	c.mu.Lock()
	term := c.currentTerm
	peers := append([]NodeID(nil), c.peerOrder...)
	commitIndex := c.store.CommitIndex()
	c.mu.Unlock()

	lastIdx := c.store.LastIndex()
	results := make(chan BroadcastResult, len(peers))

	c.mu.Lock()
	for _, id := range peers {
		peer := c.peers[id]
		prevIdx := peer.NextIndex() - 1
		var prevTerm Term
		if prevIdx > 0 {
			if e, ok := c.store.Entry(prevIdx); ok {
				prevTerm = e.Term
			}
		}

		var entries []LogEntry
		if c.dataReplicationEnabled {
			for idx := peer.NextIndex(); idx <= lastIdx; idx++ {
				if e, ok := c.store.Entry(idx); ok {
					entries = append(entries, e)
				}
			}
		}

		req := &AppendEntriesRequest{
			Term:         term,
			LeaderID:     c.localID,
			PrevLogIndex: prevIdx,
			PrevLogTerm:  prevTerm,
			Entries:      entries,
			LeaderCommit: commitIndex,
		}
		peer.SendAppendEntries(req, results)
	}
	c.mu.Unlock()

	go func() {
		for i := 0; i < len(peers); i++ {
			select {
			case res := <-results:
				c.onBroadcastResponse(res)
			case <-time.After(c.timers.broadcastTick):
				return
			}
		}
	}()
}

// onBroadcastResponse applies one AppendEntries response, as described in
// the spec's leader-handling section: a higher term steps the leader down;
// success advances the peer's cursors and, on reaching quorum at a new
// index in the current term, resolves pending commits; failure backs the
// peer's next_index off by one.
func (c *Context) onBroadcastResponse(res BroadcastResult) {
	c.mu.Lock()
	if res.Term > c.currentTerm {
		c.currentTerm = res.Term
		c.vote.reset()
		c.mu.Unlock()
		c.metrics.SetTerm(uint64(res.Term))
		c.sm.Dispatch(EventHigherTermObserved)
		return
	}
	if c.sm.Role() != Leader {
		c.mu.Unlock()
		return
	}

	peer, ok := c.peers[res.ID]
	if !ok {
		c.mu.Unlock()
		return
	}

	if !res.Success {
		peer.OnAppendFailure()
		c.mu.Unlock()
		return
	}

	peer.OnAppendSuccess(res.MatchIndex)
	n := c.computeCommitIndexLocked()
	c.mu.Unlock()

	if n > 0 {
		c.store.SetCommitIndex(n)
		c.metrics.SetCommitIndex(n)
		c.pending.ResolveUpTo(n)
	}
}

// computeCommitIndexLocked finds the highest index N such that a majority
// of the cluster (including the leader) has match_index >= N and the entry
// at N was appended in the current term (the leader-completeness
// safeguard: a leader never commits an entry from a prior term purely by
// counting replicas). Must be called with c.mu held.
func (c *Context) computeCommitIndexLocked() uint64 {
	currentCommit := c.store.CommitIndex()
	lastIdx := c.store.LastIndex()
	majority := (len(c.peerOrder)+1)/2 + 1

	best := uint64(0)
	for n := lastIdx; n > currentCommit; n-- {
		entry, ok := c.store.Entry(n)
		if !ok || entry.Term != c.currentTerm {
			continue
		}
		count := 1 // the leader itself
		for _, id := range c.peerOrder {
			if c.peers[id].MatchIndex() >= n {
				count++
			}
		}
		if count >= majority {
			best = n
			break
		}
	}
	return best
}

// OnAppendEntriesRequested implements AppendEntriesServer, following the
// consistency-check/truncate/append/commit-advance procedure from the
// spec.
func (c *Context) OnAppendEntriesRequested(req *AppendEntriesRequest) *AppendEntriesResponse {
	c.mu.Lock()
	if req.Term < c.currentTerm {
		term := c.currentTerm
		c.mu.Unlock()
		return &AppendEntriesResponse{Term: term, Success: false}
	}

	higherTerm := req.Term > c.currentTerm
	if higherTerm {
		c.currentTerm = req.Term
		c.vote.reset()
	}
	c.leaderID = req.LeaderID
	c.haveLeader = true
	term := c.currentTerm
	c.mu.Unlock()

	if higherTerm {
		c.metrics.SetTerm(uint64(term))
	}
	wasLeaderOrCandidate := c.sm.Role() == Leader || c.sm.Role() == Candidate
	if higherTerm || wasLeaderOrCandidate {
		c.sm.Dispatch(EventHigherTermObserved)
	}
	c.sm.Dispatch(EventAppendEntriesFromLeader)

	if req.PrevLogIndex > 0 {
		entry, ok := c.store.Entry(req.PrevLogIndex)
		if !ok || entry.Term != req.PrevLogTerm {
			return &AppendEntriesResponse{Term: term, Success: false}
		}
	}

	for _, entry := range req.Entries {
		existing, ok := c.store.Entry(entry.Index)
		if ok && existing.Term != entry.Term {
			c.store.TruncateFrom(entry.Index)
			ok = false
		}
		if !ok {
			c.store.Append([]LogEntry{entry})
		}
	}
	lastNew := req.PrevLogIndex
	if len(req.Entries) > 0 {
		lastNew = req.Entries[len(req.Entries)-1].Index
	}

	if req.LeaderCommit > c.store.CommitIndex() {
		newCommit := req.LeaderCommit
		if lastNew < newCommit {
			newCommit = lastNew
		}
		if newCommit > c.store.CommitIndex() {
			c.store.SetCommitIndex(newCommit)
			c.metrics.SetCommitIndex(newCommit)
		}
	}

	return &AppendEntriesResponse{Term: term, Success: true, MatchIndex: lastNew}
}

// CommitData is the leader-only entry point from the application: it
// expects the caller to have already appended the entry at index (in the
// current term) via the shared DataStore, registers a pending commit, and
// kicks off an immediate broadcast. It never blocks the caller.
func (c *Context) CommitData(index uint64, callback CommitCallback) (*CommitFuture, error) {
	if !c.dataReplicationEnabled {
		return nil, ErrReplicationDisabled
	}
	if c.sm.Role() != Leader {
		return nil, ErrNotLeader
	}

	entry, ok := c.store.Entry(index)
	if !ok {
		return nil, ErrMissingLogEntry
	}

	c.mu.Lock()
	term := c.currentTerm
	majority := (len(c.peerOrder)+1)/2 + 1
	c.mu.Unlock()

	if entry.Term != term {
		c.logger.Warn().
			Uint64("index", index).
			Uint64("entry_term", uint64(entry.Term)).
			Uint64("current_term", uint64(term)).
			Msg("commit_data called for an entry from a stale term")
	}

	future := newCommitFuture(callback)
	c.pending.Register(index, term, c.localID, future)
	c.metrics.SetPendingCommits(1)

	// correlationID exists purely for log correlation across this commit's
	// broadcast rounds; it is never placed on the wire.
	correlationID := uuid.New()
	c.logger.Debug().
		Uint64("index", index).
		Uint64("term", uint64(term)).
		Str("commit_id", correlationID.String()).
		Msg("commit_data registered")

	if majority <= 1 {
		// A single-node cluster: the leader's own ack is already a
		// quorum, no need to wait on any peer.
		if index > c.store.CommitIndex() {
			c.store.SetCommitIndex(index)
			c.metrics.SetCommitIndex(index)
		}
		c.pending.ResolveUpTo(index)
	} else {
		c.Broadcast()
	}

	return future, nil
}

// KnownLeader returns the id of the node currently believed to be leader,
// and whether one is known at all.
func (c *Context) KnownLeader() (NodeID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaderID, c.haveLeader
}

// Shutdown drives the node to Standby, stopping timers and abandoning all
// pending commits.
func (c *Context) Shutdown() {
	c.sm.Dispatch(EventShutdown)
}
