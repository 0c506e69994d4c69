package raft

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/daoran/foros/internal/raftstore"
)

// inProcessVoteClient and inProcessAppendClient call a peer's Context
// handlers directly, in the spirit of a fake in-memory RPC transport: no
// network, no serialization, but the same request/response shapes a real
// grpcraft client would use.
type inProcessVoteClient struct{ target *Context }

func (c inProcessVoteClient) RequestVote(req *RequestVoteRequest) (*RequestVoteResponse, error) {
	return c.target.OnRequestVoteRequested(req), nil
}

type inProcessAppendClient struct{ target *Context }

func (c inProcessAppendClient) AppendEntries(req *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	return c.target.OnAppendEntriesRequested(req), nil
}

// clusterDialer resolves every peer id against a shared registry of live
// Contexts, populated once every node in the harness exists.
type clusterDialer struct {
	nodes map[NodeID]*Context
}

func (d *clusterDialer) DialVote(id NodeID) VoteClient     { return inProcessVoteClient{d.nodes[id]} }
func (d *clusterDialer) DialAppend(id NodeID) AppendClient { return inProcessAppendClient{d.nodes[id]} }

type testNode struct {
	id    NodeID
	ctx   *Context
	store *raftstore.MemStore
}

// newTestCluster wires n nodes together with fast, test-scale timeouts:
// short enough that elections complete quickly, with broadcast strictly
// faster than the election window so a healthy leader's heartbeats always
// suppress follower elections.
func newTestCluster(t *testing.T, n int) []*testNode {
	t.Helper()
	dialer := &clusterDialer{nodes: make(map[NodeID]*Context, n)}

	var ids []NodeID
	nodes := make([]*testNode, 0, n)
	for i := 0; i < n; i++ {
		id := NodeID(i + 1)
		ids = append(ids, id)
		store := raftstore.NewMemStore()
		ctx := NewContext(ContextConfig{
			ClusterName:            "cluster",
			LocalID:                id,
			ElectionTimeoutMin:     150 * time.Millisecond,
			ElectionTimeoutMax:     300 * time.Millisecond,
			BroadcastTimeout:       30 * time.Millisecond,
			DataReplicationEnabled: true,
			Store:                  store,
			Logger:                 zerolog.Nop(),
			RandSeed:               int64(id),
		})
		dialer.nodes[id] = ctx
		nodes = append(nodes, &testNode{id: id, ctx: ctx, store: store})
	}

	for _, node := range nodes {
		peers := make([]NodeID, 0, n-1)
		for _, id := range ids {
			if id != node.id {
				peers = append(peers, id)
			}
		}
		node.ctx.Initialize(peers, dialer)
	}

	t.Cleanup(func() {
		for _, node := range nodes {
			node.ctx.Shutdown()
		}
	})
	return nodes
}

func awaitSingleLeader(t *testing.T, nodes []*testNode, timeout time.Duration) *testNode {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var leaders []*testNode
		for _, n := range nodes {
			if n.ctx.Role() == Leader {
				leaders = append(leaders, n)
			}
		}
		if len(leaders) == 1 {
			return leaders[0]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no single leader emerged within %s", timeout)
	return nil
}

func TestClusterThreeNodesElectExactlyOneLeader(t *testing.T) {
	nodes := newTestCluster(t, 3)

	leader := awaitSingleLeader(t, nodes, 2*time.Second)

	count := 0
	for _, n := range nodes {
		if n.ctx.Role() == Leader {
			count++
		}
	}
	require.Equal(t, 1, count)
	require.NotNil(t, leader)
}

func TestClusterCommitReplicatesToFollowersAndResolves(t *testing.T) {
	nodes := newTestCluster(t, 3)
	leader := awaitSingleLeader(t, nodes, 2*time.Second)

	idx := leader.store.AppendCommand(leader.ctx.Term(), []byte("set x=1"))
	future, err := leader.ctx.CommitData(idx, nil)
	require.NoError(t, err)

	select {
	case result := <-future.Done():
		require.NoError(t, result.Err)
		require.Equal(t, idx, result.Index)
	case <-time.After(2 * time.Second):
		t.Fatal("commit did not resolve in time")
	}

	require.Eventually(t, func() bool {
		for _, n := range nodes {
			if n.store.CommitIndex() < idx {
				return false
			}
		}
		return true
	}, 2*time.Second, 20*time.Millisecond, "not every follower caught up to the committed index")
}

func TestClusterLeaderFailureTriggersReElection(t *testing.T) {
	nodes := newTestCluster(t, 3)
	firstLeader := awaitSingleLeader(t, nodes, 2*time.Second)

	firstLeader.ctx.Shutdown()

	var remaining []*testNode
	for _, n := range nodes {
		if n.id != firstLeader.id {
			remaining = append(remaining, n)
		}
	}

	newLeader := awaitSingleLeader(t, remaining, 3*time.Second)
	require.NotEqual(t, firstLeader.id, newLeader.id)
	require.Greater(t, newLeader.ctx.Term(), firstLeader.ctx.Term())
}
