package raft

// RequestVoteRequest is the wire shape of a RequestVote RPC.
type RequestVoteRequest struct {
	Term          Term
	CandidateID   NodeID
	LastLogIndex  uint64
	LastLogTerm   Term
}

// RequestVoteResponse is the wire shape of a RequestVote reply.
type RequestVoteResponse struct {
	Term        Term
	VoteGranted bool
}

// AppendEntriesRequest is the wire shape of an AppendEntries RPC. Entries is
// always empty when the sender runs with data_replication_enabled=false.
type AppendEntriesRequest struct {
	Term         Term
	LeaderID     NodeID
	PrevLogIndex uint64
	PrevLogTerm  Term
	Entries      []LogEntry
	LeaderCommit uint64
}

// AppendEntriesResponse is the wire shape of an AppendEntries reply.
type AppendEntriesResponse struct {
	Term       Term
	Success    bool
	MatchIndex uint64
}

// VoteClient is the outbound half of the RequestVote RPC, implemented by the
// transport package against a specific peer.
type VoteClient interface {
	RequestVote(req *RequestVoteRequest) (*RequestVoteResponse, error)
}

// AppendClient is the outbound half of the AppendEntries RPC, implemented
// by the transport package against a specific peer.
type AppendClient interface {
	AppendEntries(req *AppendEntriesRequest) (*AppendEntriesResponse, error)
}

// PeerDialer builds the RPC clients for one peer. The concrete
// implementation (internal/transport/grpcraft) resolves NodeID to a network
// address and dials it; the engine never constructs a transport itself.
type PeerDialer interface {
	DialVote(id NodeID) VoteClient
	DialAppend(id NodeID) AppendClient
}

// RequestVoteServer is implemented by Context and registered with the
// transport's service endpoint under
// "/<cluster_name>/<node_id>/request_vote".
type RequestVoteServer interface {
	OnRequestVoteRequested(req *RequestVoteRequest) *RequestVoteResponse
}

// AppendEntriesServer is implemented by Context and registered with the
// transport's service endpoint under
// "/<cluster_name>/<node_id>/append_entries".
type AppendEntriesServer interface {
	OnAppendEntriesRequested(req *AppendEntriesRequest) *AppendEntriesResponse
}
