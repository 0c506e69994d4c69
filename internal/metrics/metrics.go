// Package metrics exports the Raft engine's low-frequency state as
// Prometheus gauges: current term, commit index, in-flight pending
// commits, and the node's lifecycle state. Both raft.Context and
// lifecycle.Bridge depend only on narrow recorder interfaces; this package
// is the only internal package that imports client_golang (cmd/forosd also
// imports it to build the registry and serve /metrics).
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daoran/foros/internal/lifecycle"
)

// Recorder implements both raft.MetricsRecorder and
// lifecycle.MetricsRecorder against a set of per-node Prometheus gauges.
type Recorder struct {
	term           prometheus.Gauge
	commitIndex    prometheus.Gauge
	pendingCommits prometheus.Gauge
	lifecycleState prometheus.Gauge
}

// NewRecorder builds and registers a Recorder's gauges against reg, labeled
// with the node's cluster name and id.
func NewRecorder(reg prometheus.Registerer, clusterName string, nodeID uint32) *Recorder {
	constLabels := prometheus.Labels{
		"cluster": clusterName,
		"node":    strconv.FormatUint(uint64(nodeID), 10),
	}

	r := &Recorder{
		term: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "foros",
			Subsystem:   "raft",
			Name:        "term",
			Help:        "Current Raft term observed by this node.",
			ConstLabels: constLabels,
		}),
		commitIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "foros",
			Subsystem:   "raft",
			Name:        "commit_index",
			Help:        "Highest log index known committed by this node.",
			ConstLabels: constLabels,
		}),
		pendingCommits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "foros",
			Subsystem:   "raft",
			Name:        "pending_commits",
			Help:        "Number of leader commits currently awaiting quorum.",
			ConstLabels: constLabels,
		}),
		lifecycleState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "foros",
			Subsystem:   "raft",
			Name:        "lifecycle_state",
			Help:        "Lifecycle state: 0=standby, 1=inactive, 2=active.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(r.term, r.commitIndex, r.pendingCommits, r.lifecycleState)
	return r
}

// SetTerm implements raft.MetricsRecorder.
func (r *Recorder) SetTerm(term uint64) { r.term.Set(float64(term)) }

// SetCommitIndex implements raft.MetricsRecorder.
func (r *Recorder) SetCommitIndex(index uint64) { r.commitIndex.Set(float64(index)) }

// SetPendingCommits implements raft.MetricsRecorder.
func (r *Recorder) SetPendingCommits(n int) { r.pendingCommits.Set(float64(n)) }

// SetState implements lifecycle.MetricsRecorder.
func (r *Recorder) SetState(state lifecycle.State) { r.lifecycleState.Set(float64(state)) }
