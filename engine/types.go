// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "github.com/luxfi/floatingtemple/ids"

// TransactionID, ObjectID and the sentinel values are re-exported from the
// ids package so that engine code and its callers share one vocabulary
// without every file importing ids directly.
type (
	TransactionID = ids.TransactionID
	ObjectID      = ids.ObjectID
)

var (
	MinTransactionID = ids.MinTransactionID
	MaxTransactionID = ids.MaxTransactionID
)
