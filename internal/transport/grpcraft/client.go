package grpcraft

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/daoran/foros/internal/raft"
)

// Dialer resolves peer ids to addresses and lazily dials a shared
// *grpc.ClientConn per peer, implementing raft.PeerDialer. Broadcast and
// vote requests each spawn one goroutine per peer, so conns is guarded by
// mu against concurrent dial-and-cache races.
type Dialer struct {
	clusterName string
	addrs       map[raft.NodeID]string
	timeout     time.Duration

	mu    sync.Mutex
	conns map[raft.NodeID]*grpc.ClientConn
}

// NewDialer builds a Dialer for clusterName, resolving peer ids through
// addrs (node id -> "host:port"). timeout bounds each individual RPC.
func NewDialer(clusterName string, addrs map[raft.NodeID]string, timeout time.Duration) *Dialer {
	return &Dialer{
		clusterName: clusterName,
		addrs:       addrs,
		timeout:     timeout,
		conns:       make(map[raft.NodeID]*grpc.ClientConn),
	}
}

func (d *Dialer) conn(id raft.NodeID) (*grpc.ClientConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if conn, ok := d.conns[id]; ok {
		return conn, nil
	}
	addr, ok := d.addrs[id]
	if !ok {
		return nil, fmt.Errorf("grpcraft: no address configured for peer %d", id)
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("grpcraft: dial peer %d at %s: %w", id, addr, err)
	}
	d.conns[id] = conn
	return conn, nil
}

// DialVote implements raft.PeerDialer.
func (d *Dialer) DialVote(id raft.NodeID) raft.VoteClient {
	return &voteClient{dialer: d, peer: id}
}

// DialAppend implements raft.PeerDialer.
func (d *Dialer) DialAppend(id raft.NodeID) raft.AppendClient {
	return &appendClient{dialer: d, peer: id}
}

// Close tears down every dialed connection.
func (d *Dialer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conn := range d.conns {
		conn.Close()
	}
}

type voteClient struct {
	dialer *Dialer
	peer   raft.NodeID
}

func (c *voteClient) RequestVote(req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	conn, err := c.dialer.conn(c.peer)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.dialer.timeout)
	defer cancel()

	resp := new(raft.RequestVoteResponse)
	method := fmt.Sprintf("/%s/%s", serviceName(c.dialer.clusterName, c.peer), requestVoteMethod)
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, fmt.Errorf("grpcraft: request_vote to %d: %w", c.peer, err)
	}
	return resp, nil
}

type appendClient struct {
	dialer *Dialer
	peer   raft.NodeID
}

func (c *appendClient) AppendEntries(req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	conn, err := c.dialer.conn(c.peer)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.dialer.timeout)
	defer cancel()

	resp := new(raft.AppendEntriesResponse)
	method := fmt.Sprintf("/%s/%s", serviceName(c.dialer.clusterName, c.peer), appendEntriesMethod)
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, fmt.Errorf("grpcraft: append_entries to %d: %w", c.peer, err)
	}
	return resp, nil
}
