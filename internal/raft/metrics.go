package raft

// MetricsRecorder receives low-frequency gauge updates from Context. The
// concrete implementation (internal/metrics) exports these via Prometheus;
// Context never depends on the metrics library directly, only this
// interface, which is optional (a nil recorder is valid and simply means no
// metrics are recorded).
type MetricsRecorder interface {
	SetTerm(term uint64)
	SetCommitIndex(index uint64)
	SetPendingCommits(n int)
}

type noopMetrics struct{}

func (noopMetrics) SetTerm(uint64)         {}
func (noopMetrics) SetCommitIndex(uint64)  {}
func (noopMetrics) SetPendingCommits(int)  {}
