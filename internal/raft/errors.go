package raft

import "errors"

// Protocol-level error kinds. These never escape to the application as Go
// errors returned from RPC handlers — they are converted into response
// fields and internal events. They do surface through commit_data's future
// (ErrNotLeader, ErrAbandoned) and through CommitData's immediate return.
var (
	// ErrNotLeader is returned immediately when CommitData is invoked on a
	// node that does not currently hold leadership.
	ErrNotLeader = errors.New("raft: node is not the leader")

	// ErrAbandoned marks a pending commit that was discarded because the
	// node lost leadership before a quorum of acknowledgements arrived.
	ErrAbandoned = errors.New("raft: commit abandoned, leadership lost")

	// ErrReplicationDisabled is returned by CommitData when the node was
	// configured with data_replication_enabled=false; in that mode the
	// engine only performs leader election, never log replication.
	ErrReplicationDisabled = errors.New("raft: data replication is disabled for this node")

	// ErrMissingLogEntry is returned by CommitData when it is called for an
	// index the application did not already append to the local log.
	ErrMissingLogEntry = errors.New("raft: no local log entry at requested commit index")

	// errShuttingDown is not referenced by any code path: Shutdown resolves
	// in-flight commits with ErrAbandoned instead.
	errShuttingDown = errors.New("raft: node is shutting down")
)
