package raft

import "sync"

// pendingCommit is a leader-side commit awaiting quorum acknowledgement.
type pendingCommit struct {
	index  uint64
	term   Term
	future *CommitFuture
	acks   map[NodeID]struct{}
}

// PendingCommits tracks every in-flight leader commit, keyed by log index.
// At most one pending entry may exist per index at a time. Resolution is
// always single-shot, delegated to the CommitFuture itself.
type PendingCommits struct {
	mu      sync.Mutex
	entries map[uint64]*pendingCommit
}

// NewPendingCommits builds an empty tracker.
func NewPendingCommits() *PendingCommits {
	return &PendingCommits{entries: make(map[uint64]*pendingCommit)}
}

// Register adds a new pending commit for index/term, self-acked by id
// (the leader counts itself). It is a programming error to register twice
// for the same index without an intervening resolution; the caller
// (Context.CommitData) guarantees this by construction.
func (p *PendingCommits) Register(index uint64, term Term, self NodeID, future *CommitFuture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[index] = &pendingCommit{
		index:  index,
		term:   term,
		future: future,
		acks:   map[NodeID]struct{}{self: {}},
	}
}

// Ack records that peer has replicated up through index, for every pending
// commit at or below that index. It returns nothing and resolves nothing:
// AckCount reports the tally, and resolution is left to the caller so that
// commit index advancement and leader-completeness checks stay in Context.
func (p *PendingCommits) Ack(peer NodeID, matchIndex uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for idx, pc := range p.entries {
		if idx <= matchIndex {
			pc.acks[peer] = struct{}{}
		}
	}
}

// AckCount returns how many distinct nodes (including the leader) have
// acknowledged the pending commit at index, or 0 if none is pending there.
func (p *PendingCommits) AckCount(index uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.entries[index]
	if !ok {
		return 0
	}
	return len(pc.acks)
}

// ResolveUpTo resolves and removes every pending commit with index <= n, in
// index order, with a success result.
func (p *PendingCommits) ResolveUpTo(n uint64) {
	p.mu.Lock()
	var ready []*pendingCommit
	for idx, pc := range p.entries {
		if idx <= n {
			ready = append(ready, pc)
			delete(p.entries, idx)
		}
	}
	p.mu.Unlock()

	sortByIndex(ready)
	for _, pc := range ready {
		pc.future.resolve(CommitResult{Index: pc.index})
	}
}

// AbandonAll resolves every pending commit, in index order, with err. This
// is invoked whenever the node loses leadership.
func (p *PendingCommits) AbandonAll(err error) {
	p.mu.Lock()
	var all []*pendingCommit
	for idx, pc := range p.entries {
		all = append(all, pc)
		delete(p.entries, idx)
	}
	p.mu.Unlock()

	sortByIndex(all)
	for _, pc := range all {
		pc.future.resolve(CommitResult{Index: pc.index, Err: err})
	}
}

func sortByIndex(pcs []*pendingCommit) {
	for i := 1; i < len(pcs); i++ {
		for j := i; j > 0 && pcs[j-1].index > pcs[j].index; j-- {
			pcs[j-1], pcs[j] = pcs[j], pcs[j-1]
		}
	}
}
