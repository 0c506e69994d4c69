package raft

// BroadcastResult is what an OtherNode reports back to Context after one
// AppendEntries round trip.
type BroadcastResult struct {
	ID         NodeID
	MatchIndex uint64
	Term       Term
	Success    bool
}

// VoteResult is what an OtherNode reports back to Context after one
// RequestVote round trip.
type VoteResult struct {
	ID      NodeID
	Term    Term
	Granted bool
}

// OtherNode holds one remote peer's RPC clients and its leader-side
// replication cursor. next_index/match_index are only meaningful while the
// local node is Leader; they are reset whenever a new leadership term
// begins. OtherNode never retries a failed send on its own — a dropped or
// errored response is simply not reported, and the next broadcast tick
// tries again with the (possibly backed-off) next_index.
type OtherNode struct {
	ID NodeID

	voteClient   VoteClient
	appendClient AppendClient

	nextIndex  uint64
	matchIndex uint64
}

// NewOtherNode builds a peer entry bound to the given RPC clients.
func NewOtherNode(id NodeID, vote VoteClient, appendC AppendClient) *OtherNode {
	return &OtherNode{ID: id, voteClient: vote, appendClient: appendC}
}

// ResetCursors is called exactly once per leadership term, on becoming
// Leader: next_index starts at the leader's last log index + 1, match_index
// at 0.
func (o *OtherNode) ResetCursors(lastIndex uint64) {
	o.nextIndex = lastIndex + 1
	o.matchIndex = 0
}

// SendRequestVote issues a RequestVote RPC and reports the outcome on
// result, which must be buffered or drained promptly; transport failures
// are treated as a dropped response and produce no result at all.
func (o *OtherNode) SendRequestVote(req *RequestVoteRequest, result chan<- VoteResult) {
	go func() {
		resp, err := o.voteClient.RequestVote(req)
		if err != nil {
			return
		}
		result <- VoteResult{ID: o.ID, Term: resp.Term, Granted: resp.VoteGranted}
	}()
}

// SendAppendEntries issues an AppendEntries RPC and reports the outcome on
// result. Transport failures are treated as a dropped response (the next
// broadcast tick will retry from the same next_index).
func (o *OtherNode) SendAppendEntries(req *AppendEntriesRequest, result chan<- BroadcastResult) {
	go func() {
		resp, err := o.appendClient.AppendEntries(req)
		if err != nil {
			return
		}
		matchIndex := resp.MatchIndex
		if !resp.Success {
			matchIndex = 0
		}
		result <- BroadcastResult{ID: o.ID, MatchIndex: matchIndex, Term: resp.Term, Success: resp.Success}
	}()
}

// OnAppendSuccess advances match_index/next_index after a successful
// AppendEntries response. match_index is monotonically non-decreasing: a
// stale, reordered success for an older matchIndex is ignored.
func (o *OtherNode) OnAppendSuccess(matchIndex uint64) {
	if matchIndex > o.matchIndex {
		o.matchIndex = matchIndex
	}
	if matchIndex+1 > o.nextIndex {
		o.nextIndex = matchIndex + 1
	}
}

// OnAppendFailure backs off next_index by one, floored at 1, after a
// LogInconsistency rejection.
func (o *OtherNode) OnAppendFailure() {
	if o.nextIndex > 1 {
		o.nextIndex--
	}
}

// NextIndex returns the current replication cursor for building the next
// AppendEntries request.
func (o *OtherNode) NextIndex() uint64 { return o.nextIndex }

// MatchIndex returns the highest index known replicated to this peer.
func (o *OtherNode) MatchIndex() uint64 { return o.matchIndex }
