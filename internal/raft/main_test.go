package raft

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that every goroutine this package's tests spawn (via
// Timers.StartElectionTimer/StartBroadcastTimer, and the RequestVote/
// Broadcast response collectors in context.go) has exited by the time the
// suite finishes. cluster_test.go and context_test.go both drive
// Context.Shutdown() on every node they create, which retires the timer
// goroutines; the response collectors exit on their own once every peer
// has answered or their per-response wait times out.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
