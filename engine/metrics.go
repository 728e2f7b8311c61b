// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "github.com/luxfi/floatingtemple/metrics"

// engineMetrics is optional: nil until SetMetrics is called, and every
// reporting site is nil-checked so a store or object content never needs
// one wired in to run.
var engineMetrics *metrics.Engine

// SetMetrics attaches the counters TransactionStore and
// VersionedObjectContent report to. m may be nil to stop reporting. Not safe to call concurrently
// with the counters it replaces being incremented.
func SetMetrics(m *metrics.Engine) {
	engineMetrics = m
}
