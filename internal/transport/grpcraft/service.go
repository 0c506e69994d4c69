package grpcraft

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/daoran/foros/internal/raft"
)

const (
	requestVoteMethod   = "request_vote"
	appendEntriesMethod = "append_entries"
)

// serviceName follows the spec's naming convention directly:
// "/<cluster_name>/<node_id>/request_vote" and
// "/<cluster_name>/<node_id>/append_entries" are exactly the gRPC full
// method paths "/" + serviceName + "/" + method when serviceName is
// "<cluster_name>/<node_id>".
func serviceName(clusterName string, nodeID raft.NodeID) string {
	return fmt.Sprintf("%s/%d", clusterName, uint32(nodeID))
}

// Server registers one node's RequestVote/AppendEntries handlers on a
// shared *grpc.Server. A single process hosting several nodes registers
// each under its own service name.
type Server struct {
	grpcServer *grpc.Server
}

// NewServer wraps an existing *grpc.Server (constructed with
// grpc.ForceServerCodec(gobCodec{}) by the caller) so one listener can be
// shared across several nodes.
func NewServer(grpcServer *grpc.Server) *Server {
	return &Server{grpcServer: grpcServer}
}

// RegisterNode exposes handler's two RPCs under the node's service name.
func (s *Server) RegisterNode(clusterName string, nodeID raft.NodeID, handler interface {
	raft.RequestVoteServer
	raft.AppendEntriesServer
}) {
	desc := &grpc.ServiceDesc{
		ServiceName: serviceName(clusterName, nodeID),
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: requestVoteMethod,
				Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
					req := new(raft.RequestVoteRequest)
					if err := dec(req); err != nil {
						return nil, err
					}
					return handler.OnRequestVoteRequested(req), nil
				},
			},
			{
				MethodName: appendEntriesMethod,
				Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
					req := new(raft.AppendEntriesRequest)
					if err := dec(req); err != nil {
						return nil, err
					}
					return handler.OnAppendEntriesRequested(req), nil
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "foros/raft.proto",
	}
	s.grpcServer.RegisterService(desc, handler)
}
