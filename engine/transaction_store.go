// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/luxfi/floatingtemple/ids"
)

// peerDiscriminator hashes a peer-id string into the fixed 64-bit value
// used as a TransactionID's A component, so two peers' locally-assigned
// PeerRegistry handles (which are not comparable across processes) never
// collide in the global id space.
func peerDiscriminator(peerID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(peerID))
	return h.Sum64()
}

// namedObjectNamespace seeds the deterministic id minted for named objects
// (SUPPLEMENTED FEATURES: every peer that creates an object under the same
// name must converge on the same ObjectID without coordination).
var namedObjectNamespace = uuid.MustParse("2c9a4f3e-6b8b-4fd0-9a61-9a9b9d9f0a6e")

// TransactionStore owns every SharedObject known to one peer, the local
// peer's view of the global version state (currentSequencePoint), and the
// id generator for transactions this peer originates (§4.K).
type TransactionStore struct {
	localPeer PeerHandle
	peers     *PeerRegistry
	sender    PeerMessageSender
	idGen     *TransactionIDGenerator

	mu                   sync.Mutex
	objects              map[ObjectID]*SharedObject
	namedRefs            map[string]*ObjectReference
	currentSequencePoint *SequencePoint

	// recordingThreads is every live RecordingThread driven by this store,
	// notified by rejectTransactions whenever this peer's own transactions
	// are rejected (§4.J, §5).
	recordingThreads map[*RecordingThread]struct{}

	// rejectedTransactionID is the rewind/resume handshake state consulted
	// by GetExecutionPhase (SUPPLEMENTED FEATURES #3): MinTransactionID
	// means no rejection is pending.
	rejectedTransactionID TransactionID

	dataCond *sync.Cond // broadcast whenever new transactions/rejections arrive
}

// NewTransactionStore returns a TransactionStore for localPeer, using sender
// to reach the rest of the cluster.
func NewTransactionStore(localPeer PeerHandle, peers *PeerRegistry, sender PeerMessageSender) *TransactionStore {
	s := &TransactionStore{
		localPeer:            localPeer,
		peers:                peers,
		sender:               sender,
		idGen:                NewTransactionIDGenerator(peerDiscriminator(localPeer.ID())),
		objects:              make(map[ObjectID]*SharedObject),
		namedRefs:            make(map[string]*ObjectReference),
		currentSequencePoint: NewSequencePoint(),
		recordingThreads:     make(map[*RecordingThread]struct{}),
	}
	s.dataCond = sync.NewCond(&s.mu)
	return s
}

// RegisterRecordingThread implements Store: rt is added to the set notified
// by rejectTransactions when this peer's own transactions are rejected.
func (s *TransactionStore) RegisterRecordingThread(rt *RecordingThread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordingThreads[rt] = struct{}{}
}

// UnregisterRecordingThread implements Store: removes rt from the registry,
// e.g. once its owner is done driving it.
func (s *TransactionStore) UnregisterRecordingThread(rt *RecordingThread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recordingThreads, rt)
}

// SetSender attaches (or replaces) the transport used to reach other peers.
// Separated from the constructor so a transport that itself needs a
// reference to this store's ConnectionHandler (e.g. to register it) can be
// built after the store exists.
func (s *TransactionStore) SetSender(sender PeerMessageSender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// GetLocalPeer implements Store.
func (s *TransactionStore) GetLocalPeer() PeerHandle { return s.localPeer }

// GetCurrentSequencePoint returns an immutable snapshot of everything this
// peer currently knows (§4.E, §4.K).
func (s *TransactionStore) GetCurrentSequencePoint() *SequencePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSequencePoint.Clone()
}

func (s *TransactionStore) getOrCreateSharedObjectLocked(id ids.ObjectID) *SharedObject {
	objID := ObjectID(id)
	shared, ok := s.objects[objID]
	if !ok {
		shared = NewSharedObject(objID, NewVersionedObjectContent())
		s.objects[objID] = shared
	}
	return shared
}

// CreateUnboundObjectReference returns a placeholder reference with no
// SharedObject attached yet, for collaborators (e.g. the transport, when it
// learns of an ObjectID before it has any content for it) that need a handle
// before binding it via ObjectReference.SetSharedObjectIfUnset.
func (s *TransactionStore) CreateUnboundObjectReference() *ObjectReference {
	return NewUnboundObjectReference()
}

// CreateBoundObjectReference implements the two bound-creation paths of
// §4.G: anonymous (name == "", a fresh random ObjectID every call) and named
// (name != "", a deterministic ObjectID so every peer that creates or looks
// up the same name converges on one SharedObject, and repeated local calls
// for the same name return the same *ObjectReference).
func (s *TransactionStore) CreateBoundObjectReference(name string, initial LocalObject) (*ObjectReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name != "" {
		if ref, ok := s.namedRefs[name]; ok {
			return ref, nil
		}
		objID := ids.ObjectID(uuid.NewSHA1(namedObjectNamespace, []byte(name)))
		shared := s.getOrCreateSharedObjectLocked(objID)
		ref := NewBoundObjectReference(shared)
		shared.RegisterReference(ref)
		s.namedRefs[name] = ref
		return ref, nil
	}

	raw, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("minting anonymous object id: %w", err)
	}
	shared := s.getOrCreateSharedObjectLocked(ids.ObjectID(raw))
	ref := NewBoundObjectReference(shared)
	shared.RegisterReference(ref)
	return ref, nil
}

// ObjectsAreIdentical implements Store.
func (s *TransactionStore) ObjectsAreIdentical(a, b *ObjectReference) bool {
	return ObjectsAreIdentical(a, b)
}

// errObjectUnbound is returned by GetLiveObjectAtSequencePoint for a
// reference that was never attached to a SharedObject.
var errObjectUnbound = fmt.Errorf("object reference is unbound")

// GetLiveObjectAtSequencePoint computes the LiveObject visible at sp for
// ref, requesting the object from interested peers and blocking (if wait is
// true) until enough has arrived locally (§4.H, §4.K).
func (s *TransactionStore) GetLiveObjectAtSequencePoint(ref *ObjectReference, sp *SequencePoint, wait bool) (*LiveObject, error) {
	shared := ref.SharedObject()
	if shared == nil {
		return nil, errObjectUnbound
	}

	requested := false
	for {
		s.mu.Lock()
		storeVersion := s.currentSequencePoint.VersionMap().Clone()
		s.mu.Unlock()

		obj, rejected, err := shared.Content().GetWorkingVersion(ref, storeVersion, sp)
		if err != nil {
			return nil, err
		}
		if len(rejected) > 0 {
			s.rejectTransactions(shared.ObjectID(), rejected)
		}
		if obj != nil {
			return obj, nil
		}
		if !wait {
			return nil, nil
		}

		if !requested {
			s.requestObject(shared)
			requested = true
		}

		s.mu.Lock()
		s.dataCond.Wait()
		s.mu.Unlock()
	}
}

func (s *TransactionStore) requestObject(shared *SharedObject) {
	msg := &Message{Kind: MsgGetObject, GetObject: &GetObjectMessage{ObjectID: shared.ObjectID()}}
	for _, p := range shared.GetInterestedPeers() {
		if p == s.localPeer {
			continue
		}
		_ = s.sender.SendTo(p, msg, NonBlocking)
	}
}

// CreateTransaction implements Store: it mints one TransactionID shared by
// every SharedObjectTransaction in the batch, inserts each locally, caches
// the post-commit LiveObject for every object the caller modified, and
// fans the commit out to interested peers (§4.J, §4.K).
func (s *TransactionStore) CreateTransaction(objectTransactions map[*ObjectReference]*SharedObjectTransaction, modifiedObjects map[*ObjectReference]*LiveObject, prevSequencePoint *SequencePoint) (TransactionID, error) {
	id := s.idGen.Generate()

	s.mu.Lock()
	s.currentSequencePoint.AddPeerTransactionID(s.localPeer, id)
	postCommit := s.currentSequencePoint.Clone()
	s.mu.Unlock()

	byObjectID := make(map[ObjectID]*SharedObjectTransaction, len(objectTransactions))
	for ref, txn := range objectTransactions {
		shared := ref.SharedObject()
		if shared == nil {
			continue
		}
		shared.Content().InsertTransaction(s.localPeer, id, txn.Events, true)
		if obj, ok := modifiedObjects[ref]; ok {
			shared.Content().SetCachedLiveObject(obj, postCommit)
		}
		byObjectID[shared.ObjectID()] = txn
	}

	s.mu.Lock()
	s.dataCond.Broadcast()
	s.mu.Unlock()

	s.broadcastApplyTransaction(id, byObjectID, objectTransactions)

	if engineMetrics != nil {
		engineMetrics.TransactionsCommitted.Inc()
	}

	return id, nil
}

func (s *TransactionStore) broadcastApplyTransaction(id TransactionID, byObjectID map[ObjectID]*SharedObjectTransaction, objectTransactions map[*ObjectReference]*SharedObjectTransaction) {
	interested := make(map[PeerHandle]struct{})
	for ref := range objectTransactions {
		shared := ref.SharedObject()
		if shared == nil {
			continue
		}
		for _, p := range shared.GetInterestedPeers() {
			if p != s.localPeer {
				interested[p] = struct{}{}
			}
		}
	}
	if len(interested) == 0 {
		return
	}
	peerList := make([]PeerHandle, 0, len(interested))
	for p := range interested {
		peerList = append(peerList, p)
	}
	msg := &Message{Kind: MsgApplyTransaction, ApplyTransaction: &ApplyTransactionMessage{
		TransactionID:      id,
		OriginPeer:         s.localPeer,
		ObjectTransactions: byObjectID,
	}}
	s.sender.Broadcast(peerList, msg, NonBlocking)
}

// rejectTransactions implements the local/remote split of the rewind
// protocol (SUPPLEMENTED FEATURES #2): transactions this peer originated
// become a local invalidation (the peer must rewind and re-record),
// transactions originated elsewhere are simply marked rejected so future
// replay skips them.
func (s *TransactionStore) rejectTransactions(objID ObjectID, rejected []RejectedTransaction) {
	if engineMetrics != nil {
		engineMetrics.TransactionsRejected.Add(float64(len(rejected)))
	}

	var localStart TransactionID
	haveLocal := false
	var remote []RejectedTransaction

	for _, r := range rejected {
		if r.Peer == s.localPeer {
			if !haveLocal || r.ID.Less(localStart) {
				localStart = r.ID
			}
			haveLocal = true
		} else {
			remote = append(remote, r)
		}
	}

	// invalidateEnd marks "now": every transaction this peer re-records
	// from here on gets a fresh id past it, so only the already-committed
	// range [localStart, invalidateEnd) that produced the conflict is
	// excluded -- not every future transaction this peer will ever mint.
	var invalidateEnd TransactionID
	if haveLocal {
		invalidateEnd = s.idGen.Generate()
	}

	var threads []*RecordingThread
	s.mu.Lock()
	if haveLocal {
		s.currentSequencePoint.AddInvalidatedRange(s.localPeer, localStart, invalidateEnd)
		s.rejectedTransactionID = localStart
		threads = make([]*RecordingThread, 0, len(s.recordingThreads))
		for rt := range s.recordingThreads {
			threads = append(threads, rt)
		}
	}
	for _, r := range remote {
		s.currentSequencePoint.AddRejectedPeer(r.Peer, r.ID)
	}
	s.dataCond.Broadcast()
	s.mu.Unlock()

	// Notify every live RecordingThread without holding s.mu: Rewind takes
	// the thread's own lock, and CallMethod takes that lock before calling
	// back into the store (GetExecutionPhase), so nesting them in the
	// opposite order here would invert the lock ordering.
	for _, rt := range threads {
		rt.Rewind(localStart)
	}
	if engineMetrics != nil && len(threads) > 0 {
		engineMetrics.RewindsTriggered.Add(float64(len(threads)))
	}

	if !haveLocal && len(remote) == 0 {
		return
	}
	s.mu.Lock()
	shared, ok := s.objects[objID]
	s.mu.Unlock()
	if !ok {
		return
	}
	msg := &Message{Kind: MsgRejectTransaction, RejectTransaction: &RejectTransactionMessage{
		ObjectID:             objID,
		RemoteOriginRejected: remote,
	}}
	if haveLocal {
		msg.RejectTransaction.InvalidateStart = localStart
		msg.RejectTransaction.InvalidateEnd = invalidateEnd
	}
	peers := shared.GetInterestedPeers()
	s.sender.Broadcast(peers, msg, NonBlocking)
}

// GetExecutionPhase implements Store (SUPPLEMENTED FEATURES #3): with no
// rejection pending, execution is NORMAL. A baseTransactionID at or past
// the pending rejection point is still in its rewind window. One strictly
// before it is the first caller to observe that the rewind is over, which
// atomically clears the pending state and reports RESUME.
func (s *TransactionStore) GetExecutionPhase(baseTransactionID TransactionID) ExecutionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rejectedTransactionID.IsValid() {
		return PhaseNormal
	}
	if !baseTransactionID.Less(s.rejectedTransactionID) {
		return PhaseRewind
	}
	s.rejectedTransactionID = MinTransactionID
	return PhaseResume
}

// WaitForRewind blocks until new data (a STORE_OBJECT reply, an inbound
// APPLY_TRANSACTION, or a freshly learned rejection) arrives, giving a
// blocked RecordingThread a chance to make progress on retry.
func (s *TransactionStore) WaitForRewind() {
	s.mu.Lock()
	s.dataCond.Wait()
	s.mu.Unlock()
}

// HandleMessage implements ConnectionHandler, dispatching an inbound
// message from peer (§6).
func (s *TransactionStore) HandleMessage(from PeerHandle, msg *Message) {
	switch msg.Kind {
	case MsgApplyTransaction:
		s.handleApplyTransaction(msg.ApplyTransaction)
	case MsgGetObject:
		s.handleGetObject(from, msg.GetObject)
	case MsgStoreObject:
		s.handleStoreObject(from, msg.StoreObject)
	case MsgRejectTransaction:
		s.handleRejectTransaction(from, msg.RejectTransaction)
	case MsgInvalidateTransactions:
		s.handleInvalidateTransactions(msg.InvalidateTransactions)
	}
}

// NotifyNewConnection implements ConnectionHandler: nothing to do until the
// new peer actually asks for an object.
func (s *TransactionStore) NotifyNewConnection(peer PeerHandle) {}

func (s *TransactionStore) handleApplyTransaction(m *ApplyTransactionMessage) {
	if m == nil {
		return
	}
	s.mu.Lock()
	for objID, txn := range m.ObjectTransactions {
		shared := s.getOrCreateSharedObjectLocked(ids.ObjectID(objID))
		shared.Content().InsertTransaction(m.OriginPeer, m.TransactionID, txn.Events, false)
	}
	s.currentSequencePoint.AddPeerTransactionID(m.OriginPeer, m.TransactionID)
	s.dataCond.Broadcast()
	s.mu.Unlock()
}

func (s *TransactionStore) handleGetObject(from PeerHandle, m *GetObjectMessage) {
	if m == nil {
		return
	}
	s.mu.Lock()
	shared := s.getOrCreateSharedObjectLocked(ids.ObjectID(m.ObjectID))
	storeVersion := s.currentSequencePoint.VersionMap().Clone()
	s.mu.Unlock()

	shared.AddInterestedPeer(from)
	txns, versionMap := shared.Content().GetTransactions(storeVersion)

	reply := &Message{Kind: MsgStoreObject, StoreObject: &StoreObjectMessage{
		ObjectID:     m.ObjectID,
		Transactions: txns,
		VersionMap:   versionMap,
	}}
	_ = s.sender.SendTo(from, reply, NonBlocking)
}

func (s *TransactionStore) handleStoreObject(from PeerHandle, m *StoreObjectMessage) {
	if m == nil {
		return
	}
	s.mu.Lock()
	shared := s.getOrCreateSharedObjectLocked(ids.ObjectID(m.ObjectID))
	s.mu.Unlock()

	shared.Content().StoreTransactions(from, m.Transactions, m.VersionMap)

	s.mu.Lock()
	for _, p := range m.VersionMap.Peers() {
		t, _ := m.VersionMap.Get(p)
		s.currentSequencePoint.AddPeerTransactionID(p, t)
	}
	s.dataCond.Broadcast()
	s.mu.Unlock()
}

// handleRejectTransaction applies a peer's report of its own local-origin
// rejection (from identifies the origin, since InvalidateStart is only set
// by rejectTransactions' haveLocal branch) plus any remote-origin
// rejections it separately observed.
func (s *TransactionStore) handleRejectTransaction(from PeerHandle, m *RejectTransactionMessage) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.InvalidateStart.IsValid() {
		s.currentSequencePoint.AddInvalidatedRange(from, m.InvalidateStart, m.InvalidateEnd)
	}
	for _, r := range m.RemoteOriginRejected {
		s.currentSequencePoint.AddRejectedPeer(r.Peer, r.ID)
	}
	s.dataCond.Broadcast()
}

func (s *TransactionStore) handleInvalidateTransactions(m *InvalidateTransactionsMessage) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSequencePoint.AddInvalidatedRange(m.Peer, m.Start, m.End)
	s.dataCond.Broadcast()
}

// Objects returns a stable-ordered snapshot of every ObjectID this peer
// currently holds a SharedObject for, for diagnostics (§6's Dump).
func (s *TransactionStore) Objects() []ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ObjectID, 0, len(s.objects))
	for id := range s.objects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// DumpObject writes id's SharedObject diagnostic dump to w (§6's Dump), or
// reports errObjectUnknown if this peer holds no SharedObject for id.
func (s *TransactionStore) DumpObject(id ObjectID, w io.Writer) error {
	s.mu.Lock()
	shared, ok := s.objects[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", errObjectUnknown, id)
	}
	return shared.Dump(w)
}

var errObjectUnknown = fmt.Errorf("no such object on this peer")

var (
	_ Store             = (*TransactionStore)(nil)
	_ ConnectionHandler = (*TransactionStore)(nil)
)
