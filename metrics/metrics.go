// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics defines the Prometheus collectors the engine package
// reports to. Unlike the teacher's gatherer/registry-bridge layout, there is
// no internal metrics registry to adapt here, so these collectors talk to
// client_golang directly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine is the set of counters a TransactionStore and its
// VersionedObjectContents report to; the replay collectors time and count
// PlaybackThread runs.
type Engine struct {
	TransactionsCommitted prometheus.Counter
	TransactionsRejected  prometheus.Counter
	RewindsTriggered      prometheus.Counter
	ReplayConflicts       prometheus.Counter
	ReplayDuration        prometheus.Histogram
}

// NewEngine builds a fresh Engine and registers its collectors with reg.
// Pass prometheus.NewRegistry() in tests that construct more than one
// Engine in the same process, to avoid colliding on prometheus.DefaultRegisterer.
func NewEngine(reg prometheus.Registerer) *Engine {
	e := &Engine{
		TransactionsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floatingtemple",
			Subsystem: "engine",
			Name:      "transactions_committed_total",
			Help:      "Transactions committed via TransactionStore.CreateTransaction.",
		}),
		TransactionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floatingtemple",
			Subsystem: "engine",
			Name:      "transactions_rejected_total",
			Help:      "Transactions marked rejected by rejectTransactions, local or remote origin.",
		}),
		RewindsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floatingtemple",
			Subsystem: "engine",
			Name:      "rewinds_triggered_total",
			Help:      "Local-origin rejections that drove a RecordingThread rewind.",
		}),
		ReplayConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floatingtemple",
			Subsystem: "engine",
			Name:      "replay_conflicts_total",
			Help:      "PlaybackThread runs that ended with ConflictDetected.",
		}),
		ReplayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floatingtemple",
			Subsystem: "engine",
			Name:      "replay_duration_seconds",
			Help:      "Wall-clock time spent in one PlaybackThread.Run call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		e.TransactionsCommitted,
		e.TransactionsRejected,
		e.RewindsTriggered,
		e.ReplayConflicts,
		e.ReplayDuration,
	)
	return e
}
