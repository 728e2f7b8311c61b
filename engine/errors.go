// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "fmt"

// InvariantViolation is raised for programmer misuse: a wrong event-variant
// accessor, a nil where the contract forbids it, an illegal state
// transition. These are invariants the engine itself controls, so they are
// fatal -- the caller is expected to let the process crash rather than try
// to recover from corrupted internal state.
type InvariantViolation struct {
	msg string
}

func (e *InvariantViolation) Error() string { return e.msg }

func invariantf(format string, args ...interface{}) *InvariantViolation {
	return &InvariantViolation{msg: fmt.Sprintf(format, args...)}
}

// mustInvariant panics with an InvariantViolation. Used at the small number
// of call sites where the engine itself has corrupted an invariant it
// controls (e.g. a committed transaction map keyed by an id that was never
// validated). It is never used for remote input or replay conflicts, both
// of which are expected and handled as ordinary return values.
func mustInvariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(invariantf(format, args...))
	}
}

// InvalidEventAccess is returned when a CommittedEvent or Value getter is
// called on a variant that does not carry that payload (§4.F:
// "CommittedEvent getters are partial ... all others must fail").
type InvalidEventAccess struct {
	Variant  string
	Accessor string
}

func (e *InvalidEventAccess) Error() string {
	return fmt.Sprintf("event variant %s has no %s payload", e.Variant, e.Accessor)
}

// ConflictError reports that replay diverged from the recorded events for a
// specific (origin peer, transaction id) pair. It is an expected outcome,
// not a fatal error (§7 "Replay conflict").
type ConflictError struct {
	Peer PeerHandle
	ID   TransactionID
	Why  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("replay conflict for (%s, %s): %s", e.Peer, e.ID, e.Why)
}

// RewindRequested is returned by CallMethod/BeginTransaction/EndTransaction
// (not as a Go error in the idiomatic sense, but as a named sentinel) when
// a rewind covering the in-flight method call has been observed. Callers
// unwind rather than continue.
var RewindRequested = fmt.Errorf("rewind requested")
