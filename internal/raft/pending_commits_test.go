package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPendingCommitsResolveUpToInIndexOrder(t *testing.T) {
	pc := NewPendingCommits()

	var order []uint64
	for _, idx := range []uint64{3, 1, 2} {
		idx := idx
		f := newCommitFuture(func(r CommitResult) { order = append(order, r.Index) })
		pc.Register(idx, 1, 1, f)
	}

	pc.ResolveUpTo(3)
	require.Equal(t, []uint64{1, 2, 3}, order)
}

func TestPendingCommitsAckCounting(t *testing.T) {
	pc := NewPendingCommits()
	future := newCommitFuture(nil)
	pc.Register(5, 2, 1, future)

	require.Equal(t, 1, pc.AckCount(5)) // leader self-ack

	pc.Ack(2, 5)
	pc.Ack(3, 5)
	require.Equal(t, 3, pc.AckCount(5))
}

func TestPendingCommitsAbandonAllResolvesWithError(t *testing.T) {
	pc := NewPendingCommits()

	var results []CommitResult
	f1 := newCommitFuture(func(r CommitResult) { results = append(results, r) })
	f2 := newCommitFuture(func(r CommitResult) { results = append(results, r) })
	pc.Register(1, 1, 1, f1)
	pc.Register(2, 1, 1, f2)

	pc.AbandonAll(ErrAbandoned)

	require.Len(t, results, 2)
	for _, r := range results {
		require.ErrorIs(t, r.Err, ErrAbandoned)
	}
	require.Equal(t, 0, pc.AckCount(1))
}

func TestCommitFutureResolvesExactlyOnce(t *testing.T) {
	var calls int
	f := newCommitFuture(func(CommitResult) { calls++ })

	f.resolve(CommitResult{Index: 1})
	f.resolve(CommitResult{Index: 1})

	require.Equal(t, 1, calls)
	require.Equal(t, uint64(1), f.Wait().Index)
}
