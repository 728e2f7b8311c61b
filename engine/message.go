// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// SendMode distinguishes a fire-and-forget send from one the caller waits
// on for delivery (§6).
type SendMode int

const (
	NonBlocking SendMode = iota
	Blocking
)

// MessageKind identifies which of the five wire messages (§6) a Message
// carries. There is deliberately no wire encoding here: exact framing is a
// non-goal, and these are exchanged as plain Go values by the transport.
type MessageKind int

const (
	MsgApplyTransaction MessageKind = iota
	MsgGetObject
	MsgStoreObject
	MsgRejectTransaction
	MsgInvalidateTransactions
)

// ApplyTransactionMessage asks the recipient to adopt a transaction this
// peer just committed (§6).
type ApplyTransactionMessage struct {
	TransactionID       TransactionID
	OriginPeer          PeerHandle
	ObjectTransactions  map[ObjectID]*SharedObjectTransaction
	ModifiedObjectNames map[ObjectID]string // non-empty only for newly named objects
}

// GetObjectMessage requests every transaction known for an object (§6).
type GetObjectMessage struct {
	ObjectID ObjectID
}

// StoreObjectMessage answers a GetObjectMessage (or primes a newly
// interested peer) with a snapshot of an object's committed transactions
// (§6).
type StoreObjectMessage struct {
	ObjectID     ObjectID
	Transactions map[TransactionID]*SharedObjectTransaction
	VersionMap   *VersionMap
}

// RejectTransactionMessage reports that every transaction in
// [InvalidateStart, InvalidateEnd) originated by the sender is rejected, and
// separately lists transactions originated remotely that this peer could
// not replay (§6, the local/remote split described in the rewind protocol).
// InvalidateStart is the zero TransactionID when the sender had no
// local-origin rejection to report.
type RejectTransactionMessage struct {
	ObjectID             ObjectID
	InvalidateStart      TransactionID
	InvalidateEnd        TransactionID
	RemoteOriginRejected []RejectedTransaction
}

// InvalidateTransactionsMessage tells peers that every transaction in
// [Start, End), originated by Peer, must be treated as rejected (§6).
type InvalidateTransactionsMessage struct {
	ObjectID ObjectID
	Peer     PeerHandle
	Start    TransactionID
	End      TransactionID
}

// Message is the sum type exchanged between TransactionStores. Exactly one
// of the typed fields is set, matching Kind.
type Message struct {
	Kind MessageKind

	ApplyTransaction       *ApplyTransactionMessage
	GetObject              *GetObjectMessage
	StoreObject            *StoreObjectMessage
	RejectTransaction      *RejectTransactionMessage
	InvalidateTransactions *InvalidateTransactionsMessage
}

// PeerMessageSender is the transport collaborator a TransactionStore uses to
// reach other peers (§6).
type PeerMessageSender interface {
	SendTo(peer PeerHandle, msg *Message, mode SendMode) error
	Broadcast(peers []PeerHandle, msg *Message, mode SendMode)
}

// ConnectionHandler receives inbound messages and connection events from
// the transport (§6). TransactionStore implements this.
type ConnectionHandler interface {
	HandleMessage(from PeerHandle, msg *Message)
	NotifyNewConnection(peer PeerHandle)
}
