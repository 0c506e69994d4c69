// Package raftstore provides DataStore implementations for raft.Context: an
// in-memory store for tests, and a go.etcd.io/bbolt-backed store for
// production nodes.
package raftstore

import (
	"sort"
	"sync"

	"github.com/daoran/foros/internal/raft"
)

// MemStore is a slice-backed, in-process raft.DataStore. It is not durable
// and exists for tests and for the single-process scenarios in this
// repository's test suite.
type MemStore struct {
	mu          sync.RWMutex
	entries     []raft.LogEntry // dense, 1-based: entries[i] has Index i+1
	commitIndex uint64
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// LastIndex implements raft.DataStore.
func (m *MemStore) LastIndex() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.entries))
}

// LastTerm implements raft.DataStore.
func (m *MemStore) LastTerm() raft.Term {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return 0
	}
	return m.entries[len(m.entries)-1].Term
}

// Entry implements raft.DataStore.
func (m *MemStore) Entry(index uint64) (raft.LogEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index == 0 || index > uint64(len(m.entries)) {
		return raft.LogEntry{}, false
	}
	return m.entries[index-1], true
}

// Append implements raft.DataStore. Entries are expected to be dense and
// contiguous with the existing log; AppendCommand is preferred for single-entry
// application-side appends ahead of CommitData.
func (m *MemStore) Append(entries []raft.LogEntry) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return uint64(len(m.entries))
}

// TruncateFrom implements raft.DataStore.
func (m *MemStore) TruncateFrom(index uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index == 0 || index > uint64(len(m.entries)) {
		return
	}
	m.entries = m.entries[:index-1]
}

// CommitIndex implements raft.DataStore.
func (m *MemStore) CommitIndex() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commitIndex
}

// SetCommitIndex implements raft.DataStore.
func (m *MemStore) SetCommitIndex(index uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index > m.commitIndex {
		m.commitIndex = index
	}
}

// AppendCommand is a convenience used by application code and tests: it
// appends a single application payload at the given term and returns the
// new entry's index, the way the spec expects the application to append
// before calling Context.CommitData.
func (m *MemStore) AppendCommand(term raft.Term, payload []byte) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := uint64(len(m.entries)) + 1
	m.entries = append(m.entries, raft.LogEntry{Index: idx, Term: term, Payload: payload})
	return idx
}

// Snapshot returns a defensive copy of every entry currently stored, sorted
// by index. Intended for assertions in tests.
func (m *MemStore) Snapshot() []raft.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]raft.LogEntry, len(m.entries))
	copy(out, m.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
