package raft

// DataStore is the application-supplied, durable log and commit-index
// store. The engine treats it as an external collaborator: it never embeds
// a storage engine of its own. Implementations must serialize their own
// mutations (append, truncate, commit-index advance); concurrent reads by
// index must be safe to interleave with unrelated commits.
type DataStore interface {
	// LastIndex returns the index of the last entry in the log, or 0 if
	// the log is empty.
	LastIndex() uint64
	// LastTerm returns the term of the last entry in the log, or 0 if the
	// log is empty.
	LastTerm() Term
	// Entry returns the entry at index, and whether it exists.
	Entry(index uint64) (LogEntry, bool)
	// Append appends entries to the log in order and returns the new last
	// index. Callers never interleave Append with TruncateFrom for the
	// same range; TruncateFrom always precedes a conflicting Append.
	Append(entries []LogEntry) uint64
	// TruncateFrom removes every entry with Index >= index.
	TruncateFrom(index uint64)
	// CommitIndex returns the highest index known committed.
	CommitIndex() uint64
	// SetCommitIndex advances the commit index. Callers never call this
	// with a value lower than the current commit index.
	SetCommitIndex(index uint64)
}
