package raftstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daoran/foros/internal/raft"
)

func openTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raft.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreAppendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raft.db")

	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	store.Append([]raft.LogEntry{
		{Index: 1, Term: 1, Payload: []byte("a")},
		{Index: 2, Term: 2, Payload: []byte("b")},
	})
	store.SetCommitIndex(1)
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint64(2), reopened.LastIndex())
	require.Equal(t, raft.Term(2), reopened.LastTerm())
	require.Equal(t, uint64(1), reopened.CommitIndex())

	entry, ok := reopened.Entry(2)
	require.True(t, ok)
	require.Equal(t, []byte("b"), entry.Payload)
}

func TestBoltStoreTruncateFromDeletesSuffixInclusive(t *testing.T) {
	store := openTestBoltStore(t)
	store.Append([]raft.LogEntry{
		{Index: 1, Term: 1},
		{Index: 2, Term: 1},
		{Index: 3, Term: 1},
	})

	store.TruncateFrom(2)

	require.Equal(t, uint64(1), store.LastIndex())
	_, ok := store.Entry(3)
	require.False(t, ok)
}

func TestBoltStoreEntryMissingReturnsFalse(t *testing.T) {
	store := openTestBoltStore(t)

	_, ok := store.Entry(1)
	require.False(t, ok)
}

func TestBoltStoreCommitIndexDefaultsToZero(t *testing.T) {
	store := openTestBoltStore(t)

	require.Equal(t, uint64(0), store.CommitIndex())
}
