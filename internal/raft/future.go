package raft

import "sync"

// CommitResult is delivered exactly once to a CommitFuture when a commit
// either reaches quorum or is abandoned.
type CommitResult struct {
	Index uint64
	Err   error
}

// CommitCallback is invoked once a CommitFuture resolves, synchronously on
// whichever goroutine resolves it (the broadcast response collector, the
// CommitData caller on the single-node fast path, or the goroutine that
// abandons pending commits). It may be nil.
type CommitCallback func(CommitResult)

// CommitFuture is the handle returned by Context.CommitData. It resolves
// exactly once; Wait blocks until it does, Done exposes the underlying
// channel for select-based waiting.
type CommitFuture struct {
	ch       chan CommitResult
	once     sync.Once
	callback CommitCallback
}

func newCommitFuture(callback CommitCallback) *CommitFuture {
	return &CommitFuture{
		ch:       make(chan CommitResult, 1),
		callback: callback,
	}
}

// resolve satisfies the future exactly once; subsequent calls are no-ops.
// The registered callback, if any, runs synchronously before the channel is
// populated so callers draining Done() always observe side effects that
// preceded resolution.
func (f *CommitFuture) resolve(result CommitResult) {
	f.once.Do(func() {
		if f.callback != nil {
			f.callback(result)
		}
		f.ch <- result
	})
}

// Wait blocks until the future resolves and returns the result.
func (f *CommitFuture) Wait() CommitResult {
	return <-f.ch
}

// Done exposes the resolution channel for use in a select statement.
func (f *CommitFuture) Done() <-chan CommitResult {
	return f.ch
}
