package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDriver records every entry action invoked by the StateMachine so tests
// can assert on the exact sequence without a real Context.
type fakeDriver struct {
	calls []string
}

func (d *fakeDriver) StartElectionTimer()     { d.calls = append(d.calls, "StartElectionTimer") }
func (d *fakeDriver) StopElectionTimer()      { d.calls = append(d.calls, "StopElectionTimer") }
func (d *fakeDriver) StartBroadcastTimer()    { d.calls = append(d.calls, "StartBroadcastTimer") }
func (d *fakeDriver) StopBroadcastTimer()     { d.calls = append(d.calls, "StopBroadcastTimer") }
func (d *fakeDriver) IncreaseTerm()           { d.calls = append(d.calls, "IncreaseTerm") }
func (d *fakeDriver) VoteForMe()              { d.calls = append(d.calls, "VoteForMe") }
func (d *fakeDriver) RequestVote()            { d.calls = append(d.calls, "RequestVote") }
func (d *fakeDriver) Broadcast()              { d.calls = append(d.calls, "Broadcast") }
func (d *fakeDriver) InitPeerCursors()        { d.calls = append(d.calls, "InitPeerCursors") }
func (d *fakeDriver) AbandonPendingCommits()  { d.calls = append(d.calls, "AbandonPendingCommits") }

// recordingObserver captures every role transition delivered to it.
type recordingObserver struct {
	transitions [][2]Role
}

func (o *recordingObserver) OnRoleChanged(from, to Role) {
	o.transitions = append(o.transitions, [2]Role{from, to})
}

func TestStateMachineInitMovesStandbyToFollower(t *testing.T) {
	driver := &fakeDriver{}
	obs := &recordingObserver{}
	sm := NewStateMachine(driver)
	sm.Subscribe(obs)

	sm.Dispatch(EventInit)

	require.Equal(t, Follower, sm.Role())
	require.Equal(t, []string{"StartElectionTimer"}, driver.calls)
	require.Equal(t, [][2]Role{{Standby, Follower}}, obs.transitions)
}

func TestStateMachineFollowerElectionTimeoutBecomesCandidate(t *testing.T) {
	driver := &fakeDriver{}
	sm := NewStateMachine(driver)
	sm.Dispatch(EventInit)
	driver.calls = nil

	sm.Dispatch(EventElectionTimeout)

	require.Equal(t, Candidate, sm.Role())
	require.Equal(t, []string{"IncreaseTerm", "VoteForMe", "RequestVote", "StartElectionTimer"}, driver.calls)
}

func TestStateMachineCandidateElectionTimeoutStaysCandidateNoObserverNotify(t *testing.T) {
	driver := &fakeDriver{}
	obs := &recordingObserver{}
	sm := NewStateMachine(driver)
	sm.Subscribe(obs)
	sm.Dispatch(EventInit)
	sm.Dispatch(EventElectionTimeout)
	obs.transitions = nil
	driver.calls = nil

	sm.Dispatch(EventElectionTimeout)

	require.Equal(t, Candidate, sm.Role())
	require.Equal(t, []string{"IncreaseTerm", "VoteForMe", "RequestVote", "StartElectionTimer"}, driver.calls)
	require.Empty(t, obs.transitions)
}

func TestStateMachineCandidateWinsElectionBecomesLeader(t *testing.T) {
	driver := &fakeDriver{}
	obs := &recordingObserver{}
	sm := NewStateMachine(driver)
	sm.Subscribe(obs)
	sm.Dispatch(EventInit)
	sm.Dispatch(EventElectionTimeout)
	obs.transitions = nil
	driver.calls = nil

	sm.Dispatch(EventVoteGrantedMajority)

	require.Equal(t, Leader, sm.Role())
	require.Equal(t, []string{"StopElectionTimer", "InitPeerCursors", "StartBroadcastTimer", "Broadcast"}, driver.calls)
	require.Equal(t, [][2]Role{{Candidate, Leader}}, obs.transitions)
}

func TestStateMachineCandidateSeesLeaderStepsDownToFollower(t *testing.T) {
	driver := &fakeDriver{}
	sm := NewStateMachine(driver)
	sm.Dispatch(EventInit)
	sm.Dispatch(EventElectionTimeout)
	driver.calls = nil

	sm.Dispatch(EventAppendEntriesFromLeader)

	require.Equal(t, Follower, sm.Role())
	require.Equal(t, []string{"StartElectionTimer"}, driver.calls)
}

func TestStateMachineHigherTermObservedAlwaysStepsDown(t *testing.T) {
	driver := &fakeDriver{}
	sm := NewStateMachine(driver)
	sm.Dispatch(EventInit)
	sm.Dispatch(EventElectionTimeout)
	sm.Dispatch(EventVoteGrantedMajority)
	require.Equal(t, Leader, sm.Role())
	driver.calls = nil

	sm.Dispatch(EventHigherTermObserved)

	require.Equal(t, Follower, sm.Role())
	require.Equal(t, []string{"StopBroadcastTimer", "AbandonPendingCommits", "StartElectionTimer"}, driver.calls)
}

func TestStateMachineLeaderBroadcastTickReplicates(t *testing.T) {
	driver := &fakeDriver{}
	sm := NewStateMachine(driver)
	sm.Dispatch(EventInit)
	sm.Dispatch(EventElectionTimeout)
	sm.Dispatch(EventVoteGrantedMajority)
	driver.calls = nil

	sm.Dispatch(EventBroadcastTick)

	require.Equal(t, []string{"Broadcast"}, driver.calls)
	require.Equal(t, Leader, sm.Role())
}

func TestStateMachineShutdownReturnsToStandbyFromAnyRole(t *testing.T) {
	driver := &fakeDriver{}
	sm := NewStateMachine(driver)
	sm.Dispatch(EventInit)
	sm.Dispatch(EventElectionTimeout)
	sm.Dispatch(EventVoteGrantedMajority)
	driver.calls = nil

	sm.Dispatch(EventShutdown)

	require.Equal(t, Standby, sm.Role())
	require.Equal(t, []string{"StopElectionTimer", "StopBroadcastTimer", "AbandonPendingCommits"}, driver.calls)
}
