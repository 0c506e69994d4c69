package raftstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daoran/foros/internal/raft"
)

func TestMemStoreAppendAndEntryRoundTrip(t *testing.T) {
	s := NewMemStore()

	last := s.Append([]raft.LogEntry{
		{Index: 1, Term: 1, Payload: []byte("a")},
		{Index: 2, Term: 1, Payload: []byte("b")},
	})

	require.Equal(t, uint64(2), last)
	require.Equal(t, uint64(2), s.LastIndex())
	require.Equal(t, raft.Term(1), s.LastTerm())

	entry, ok := s.Entry(1)
	require.True(t, ok)
	require.Equal(t, []byte("a"), entry.Payload)

	_, ok = s.Entry(3)
	require.False(t, ok)
	_, ok = s.Entry(0)
	require.False(t, ok)
}

func TestMemStoreTruncateFromDropsSuffixInclusive(t *testing.T) {
	s := NewMemStore()
	s.Append([]raft.LogEntry{
		{Index: 1, Term: 1},
		{Index: 2, Term: 1},
		{Index: 3, Term: 2},
	})

	s.TruncateFrom(2)

	require.Equal(t, uint64(1), s.LastIndex())
	_, ok := s.Entry(2)
	require.False(t, ok)
}

func TestMemStoreCommitIndexIsMonotonic(t *testing.T) {
	s := NewMemStore()

	s.SetCommitIndex(5)
	s.SetCommitIndex(2) // must not move backwards
	require.Equal(t, uint64(5), s.CommitIndex())

	s.SetCommitIndex(9)
	require.Equal(t, uint64(9), s.CommitIndex())
}

func TestMemStoreAppendCommandAssignsDenseIndices(t *testing.T) {
	s := NewMemStore()

	first := s.AppendCommand(1, []byte("x"))
	second := s.AppendCommand(1, []byte("y"))

	require.Equal(t, uint64(1), first)
	require.Equal(t, uint64(2), second)
	require.Len(t, s.Snapshot(), 2)
}
