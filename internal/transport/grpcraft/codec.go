// Package grpcraft puts the two Raft RPCs (RequestVote, AppendEntries) on
// google.golang.org/grpc. The spec treats the wire messages as plain
// structs rather than a recorded .proto schema, so instead of protoc
// codegen this registers a gob-based grpc/encoding.Codec and a hand-built
// grpc.ServiceDesc — the same "assume a transport, define two RPC shapes"
// contract the core depends on, wired to a real RPC framework.
package grpcraft

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is registered as the content-subtype so a client dialing with
// grpc.CallContentSubtype(codecName) and a server constructed with
// grpc.ForceServerCodec(gobCodec{}) speak the same wire format.
const codecName = "raftgob"

type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("grpcraft: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("grpcraft: gob decode: %w", err)
	}
	return nil
}

func (gobCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
