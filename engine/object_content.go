// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/floatingtemple/utils/set"
)

// RejectedTransaction names a single (origin peer, transaction id) pair
// that replay found to conflict with recorded events.
type RejectedTransaction struct {
	Peer PeerHandle
	ID   TransactionID
}

// ObjectContent is the per-SharedObject store of committed transactions,
// cached live state, and working-version computation (§4.H). It has two
// implementations: versioned (the normal case) and unversioned (a single
// immutable LiveObject that rejects mutation).
type ObjectContent interface {
	// GetWorkingVersion computes the LiveObject visible at sequencePoint,
	// given the store's overall version map. It returns (nil, nil, nil) if
	// the request is beyond what is known locally. Any transactions
	// rejected while reaching a conflict-free replay are returned.
	GetWorkingVersion(self *ObjectReference, storeVersion *VersionMap, sequencePoint *SequencePoint) (*LiveObject, []RejectedTransaction, error)

	// GetTransactions snapshots committed_versions (deep-cloned) and the
	// effective version relative to storeVersion.
	GetTransactions(storeVersion *VersionMap) (map[TransactionID]*SharedObjectTransaction, *VersionMap)

	// StoreTransactions merge-inserts a batch of transactions received
	// from remotePeer (e.g. via STORE_OBJECT), unions versionMap into the
	// local one, and marks remotePeer up to date. It reports which ids
	// newly entered committed_versions and whether any of them is <=
	// max_requested_transaction_id (in which case the caller must re-run
	// GetWorkingVersion to propagate any new conflicts, per §4.H(3)).
	StoreTransactions(remotePeer PeerHandle, transactions map[TransactionID]*SharedObjectTransaction, versionMap *VersionMap) (insertedIDs []TransactionID, needsReplayCheck bool)

	// InsertTransaction is the single-transaction form of StoreTransactions
	// (§4.H(4)). It is idempotent on id: inserting the same id twice
	// leaves committed_versions[id] equal to the first write.
	InsertTransaction(originPeer PeerHandle, id TransactionID, events []CommittedEvent, local bool) (inserted bool, needsReplayCheck bool)

	// SetCachedLiveObject memoizes a terminal state.
	SetCachedLiveObject(obj *LiveObject, sp *SequencePoint)

	Dump(w io.Writer) error
}

// VersionedObjectContent is the normal ObjectContent implementation.
type VersionedObjectContent struct {
	mu sync.Mutex

	order             []TransactionID // ascending, mirrors BTreeMap iteration order
	committedVersions map[TransactionID]*SharedObjectTransaction

	versionMap             *VersionMap // max variant: upper bound of peer ids incorporated
	upToDatePeers          set.Set[PeerHandle]
	maxRequestedTransactionID TransactionID

	cachedLiveObject    *LiveObject
	cachedSequencePoint *SequencePoint
}

// NewVersionedObjectContent returns an empty VersionedObjectContent.
func NewVersionedObjectContent() *VersionedObjectContent {
	return &VersionedObjectContent{
		committedVersions:         make(map[TransactionID]*SharedObjectTransaction),
		versionMap:                NewMaxVersionMap(),
		upToDatePeers:             set.New[PeerHandle](),
		maxRequestedTransactionID: MinTransactionID,
	}
}

func (c *VersionedObjectContent) insertSorted(id TransactionID) {
	i := sort.Search(len(c.order), func(i int) bool { return !c.order[i].Less(id) })
	c.order = append(c.order, MinTransactionID)
	copy(c.order[i+1:], c.order[i:])
	c.order[i] = id
}

// effectiveVersionLocked computes union(own version_map, storeVersion
// restricted to up_to_date_peers) (§4.H(1)).
func (c *VersionedObjectContent) effectiveVersionLocked(storeVersion *VersionMap) *VersionMap {
	restricted := NewMaxVersionMap()
	for p := range c.upToDatePeers {
		if t, ok := storeVersion.Get(p); ok {
			restricted.Add(p, t)
		}
	}
	return c.versionMap.Union(restricted)
}

// canUseCachedLocked implements the cache-validity predicate of §4.H.
func (c *VersionedObjectContent) canUseCachedLocked(sp *SequencePoint) bool {
	if c.cachedLiveObject == nil || c.cachedSequencePoint == nil {
		return false
	}
	cached := c.cachedSequencePoint
	if !cached.VersionMap().LessEqual(sp.VersionMap()) {
		return false
	}
	if !cached.Exclusions().Equal(sp.Exclusions()) {
		return false
	}
	for _, p := range sp.VersionMap().Peers() {
		cr, ok1 := cached.RejectedPeers(p)
		sr, ok2 := sp.RejectedPeers(p)
		if ok1 != ok2 {
			return false
		}
		if ok1 {
			if len(cr) != len(sr) {
				return false
			}
			for i := range cr {
				if cr[i] != sr[i] {
					return false
				}
			}
		}
	}

	for _, p := range sp.VersionMap().Peers() {
		reqT, _ := sp.VersionMap().Get(p)
		cachedT, hasCached := cached.VersionMap().Get(p)
		if !hasCached {
			cachedT = MinTransactionID
		}
		for _, id := range c.order {
			if id.Compare(cachedT) <= 0 || id.Compare(reqT) > 0 {
				continue
			}
			txn := c.committedVersions[id]
			if txn.OriginPeer != p {
				continue
			}
			for _, ev := range txn.Events {
				if ev.Kind != EventMethodCall && ev.Kind != EventSubMethodReturn {
					return false
				}
			}
		}
	}
	return true
}

// visibleEventsLocked builds the flat, time-ordered event queue for replay:
// every committed event whose (origin_peer, id) is visible at sp and not
// already in rejected.
func (c *VersionedObjectContent) visibleEventsLocked(sp *SequencePoint, rejected []RejectedTransaction) []timestampedEvent {
	isRejected := func(p PeerHandle, id TransactionID) bool {
		for _, r := range rejected {
			if r.Peer == p && r.ID == id {
				return true
			}
		}
		return false
	}

	var out []timestampedEvent
	for _, id := range c.order {
		txn := c.committedVersions[id]
		if isRejected(txn.OriginPeer, id) {
			continue
		}
		if !sp.HasPeerTransactionID(txn.OriginPeer, id) {
			continue
		}
		for _, ev := range txn.Events {
			out = append(out, timestampedEvent{event: ev, originPeer: txn.OriginPeer, id: id})
		}
	}
	return out
}

// methodCallPrecedesCreation reports whether events contains a METHOD_CALL
// before the object has been created (no OBJECT_CREATION appears earlier in
// the queue), which means the object's state cannot yet be determined.
func methodCallPrecedesCreation(events []timestampedEvent) bool {
	created := false
	for _, e := range events {
		switch e.event.Kind {
		case EventObjectCreation:
			created = true
		case EventMethodCall:
			if !created {
				return true
			}
		}
	}
	return false
}

// GetWorkingVersion implements §4.H(1).
func (c *VersionedObjectContent) GetWorkingVersion(self *ObjectReference, storeVersion *VersionMap, sp *SequencePoint) (*LiveObject, []RejectedTransaction, error) {
	c.mu.Lock()

	effective := c.effectiveVersionLocked(storeVersion)
	if !sp.VersionMap().LessEqual(effective) {
		c.mu.Unlock()
		return nil, nil, nil
	}

	if c.canUseCachedLocked(sp) {
		obj := c.cachedLiveObject
		c.mu.Unlock()
		return obj, nil, nil
	}

	var rejected []RejectedTransaction
	for {
		events := c.visibleEventsLocked(sp, rejected)
		if methodCallPrecedesCreation(events) {
			// A METHOD_CALL is visible at sp but the object's
			// OBJECT_CREATION transaction is not -- the object's state is
			// not yet determinable at sp, which is not the same as a replay
			// conflict (§4.H, scenario "late-arriving OBJECT_CREATION").
			c.mu.Unlock()
			return nil, nil, nil
		}
		// Released before starting playback: playback may recursively
		// call GetLiveObjectAtSequencePoint on other objects (§5).
		c.mu.Unlock()

		pt := NewPlaybackThread(self, events)
		start := time.Now()
		pt.Run()
		if engineMetrics != nil {
			engineMetrics.ReplayDuration.Observe(time.Since(start).Seconds())
		}

		if pt.ConflictDetected() {
			if engineMetrics != nil {
				engineMetrics.ReplayConflicts.Inc()
			}
			conf := pt.Conflict()
			rejected = append(rejected, RejectedTransaction{Peer: conf.Peer, ID: conf.ID})
			c.mu.Lock()
			continue
		}

		c.mu.Lock()
		c.bumpMaxRequestedLocked(sp)
		liveObj := pt.LiveObject()
		c.mu.Unlock()
		return liveObj, rejected, nil
	}
}

func (c *VersionedObjectContent) bumpMaxRequestedLocked(sp *SequencePoint) {
	for _, p := range sp.VersionMap().Peers() {
		t, _ := sp.VersionMap().Get(p)
		if c.maxRequestedTransactionID.Less(t) {
			c.maxRequestedTransactionID = t
		}
	}
}

// GetTransactions implements §4.H(2).
func (c *VersionedObjectContent) GetTransactions(storeVersion *VersionMap) (map[TransactionID]*SharedObjectTransaction, *VersionMap) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[TransactionID]*SharedObjectTransaction, len(c.committedVersions))
	for id, txn := range c.committedVersions {
		out[id] = txn.Clone()
	}
	return out, c.effectiveVersionLocked(storeVersion)
}

// InsertTransaction implements §4.H(4).
func (c *VersionedObjectContent) InsertTransaction(originPeer PeerHandle, id TransactionID, events []CommittedEvent, local bool) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(originPeer, id, events, local)
}

func (c *VersionedObjectContent) insertLocked(originPeer PeerHandle, id TransactionID, events []CommittedEvent, local bool) (bool, bool) {
	if _, exists := c.committedVersions[id]; exists {
		// First writer wins; re-insertion is a no-op (§5 "idempotent on
		// id").
		return false, false
	}
	c.committedVersions[id] = &SharedObjectTransaction{Events: events, OriginPeer: originPeer}
	c.insertSorted(id)
	c.versionMap.Add(originPeer, id)

	needsReplay := id.Compare(c.maxRequestedTransactionID) <= 0
	if local && c.maxRequestedTransactionID.Less(id) {
		c.maxRequestedTransactionID = id
	}
	return true, needsReplay
}

// StoreTransactions implements §4.H(3).
func (c *VersionedObjectContent) StoreTransactions(remotePeer PeerHandle, transactions map[TransactionID]*SharedObjectTransaction, versionMap *VersionMap) ([]TransactionID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]TransactionID, 0, len(transactions))
	for id := range transactions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	var inserted []TransactionID
	needsReplay := false
	for _, id := range ids {
		txn := transactions[id]
		ok, replay := c.insertLocked(txn.OriginPeer, id, txn.Events, false)
		if ok {
			inserted = append(inserted, id)
		}
		needsReplay = needsReplay || replay
	}

	c.versionMap = c.versionMap.Union(versionMap)
	c.upToDatePeers.Add(remotePeer)

	return inserted, needsReplay
}

// SetCachedLiveObject implements §4.H(5).
func (c *VersionedObjectContent) SetCachedLiveObject(obj *LiveObject, sp *SequencePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedLiveObject = obj
	c.cachedSequencePoint = sp
}

// UpToDatePeers returns the peers StoreTransactions has marked up to date.
func (c *VersionedObjectContent) UpToDatePeers() []PeerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PeerHandle, 0, c.upToDatePeers.Size())
	for p := range c.upToDatePeers {
		out = append(out, p)
	}
	return out
}

// Dump writes a structured diagnostic representation (§6).
func (c *VersionedObjectContent) Dump(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, "{\"committed_versions\":[")
	for i, id := range c.order {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		txn := c.committedVersions[id]
		fmt.Fprintf(w, "{\"id\":%q,\"origin_peer\":%q,\"events\":%d}", id.String(), txn.OriginPeer.ID(), len(txn.Events))
	}
	fmt.Fprintf(w, "],\"max_requested_transaction_id\":%q}", c.maxRequestedTransactionID.String())
	return nil
}

// UnversionedObjectContent wraps a single immutable LiveObject. It rejects
// any call that attempts to record transactions on it (§3).
type UnversionedObjectContent struct {
	obj *LiveObject
}

// NewUnversionedObjectContent returns an UnversionedObjectContent wrapping
// obj permanently.
func NewUnversionedObjectContent(obj *LiveObject) *UnversionedObjectContent {
	return &UnversionedObjectContent{obj: obj}
}

var errUnversioned = fmt.Errorf("object is unversioned: transactions cannot be recorded on it")

func (c *UnversionedObjectContent) GetWorkingVersion(self *ObjectReference, storeVersion *VersionMap, sp *SequencePoint) (*LiveObject, []RejectedTransaction, error) {
	return c.obj, nil, nil
}

func (c *UnversionedObjectContent) GetTransactions(storeVersion *VersionMap) (map[TransactionID]*SharedObjectTransaction, *VersionMap) {
	return map[TransactionID]*SharedObjectTransaction{}, NewMaxVersionMap()
}

func (c *UnversionedObjectContent) StoreTransactions(PeerHandle, map[TransactionID]*SharedObjectTransaction, *VersionMap) ([]TransactionID, bool) {
	return nil, false
}

func (c *UnversionedObjectContent) InsertTransaction(PeerHandle, TransactionID, []CommittedEvent, bool) (bool, bool) {
	return false, false
}

func (c *UnversionedObjectContent) SetCachedLiveObject(*LiveObject, *SequencePoint) {}

func (c *UnversionedObjectContent) Dump(w io.Writer) error {
	_, err := io.WriteString(w, "{\"unversioned\":true}")
	return err
}

var (
	_ ObjectContent = (*VersionedObjectContent)(nil)
	_ ObjectContent = (*UnversionedObjectContent)(nil)
)
