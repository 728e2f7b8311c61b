// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"io"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// SharedObject is the identity of a replicated object across peers (§3).
// It holds three independently locked pieces of state, matching §5's
// mutex discipline: interested remote peers, the set of ObjectReferences
// that name it, and its ObjectContent. None of these locks is ever held
// across a call back into the interpreter.
type SharedObject struct {
	objectID ObjectID

	peersMu         sync.Mutex
	interestedPeers mapset.Set[PeerHandle]

	refsMu     sync.Mutex
	references []*ObjectReference

	contentMu sync.Mutex
	content   ObjectContent
}

// NewSharedObject returns a SharedObject identified by id, backed by
// content.
func NewSharedObject(id ObjectID, content ObjectContent) *SharedObject {
	return &SharedObject{
		objectID:        id,
		interestedPeers: mapset.NewSet[PeerHandle](),
		content:         content,
	}
}

// ObjectID returns the object's 128-bit identity.
func (s *SharedObject) ObjectID() ObjectID { return s.objectID }

// AddInterestedPeer records that peer wants to be kept up to date about
// this object (set on a GET_OBJECT request, §4.K).
func (s *SharedObject) AddInterestedPeer(peer PeerHandle) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	s.interestedPeers.Add(peer)
}

// MergeInterestedPeers adds every peer in peers to the interested set.
func (s *SharedObject) MergeInterestedPeers(peers []PeerHandle) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	for _, p := range peers {
		s.interestedPeers.Add(p)
	}
}

// GetInterestedPeers returns a snapshot of the interested-peer set.
func (s *SharedObject) GetInterestedPeers() []PeerHandle {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	return s.interestedPeers.ToSlice()
}

// RegisterReference records ref as one of the names for this object.
func (s *SharedObject) RegisterReference(ref *ObjectReference) {
	s.refsMu.Lock()
	defer s.refsMu.Unlock()
	s.references = append(s.references, ref)
}

// HasObjectReference reports whether ref is registered on this object
// (§4.G). Replay decides self-method calls with ObjectsAreIdentical, not
// with this method.
func (s *SharedObject) HasObjectReference(ref *ObjectReference) bool {
	s.refsMu.Lock()
	defer s.refsMu.Unlock()
	for _, r := range s.references {
		if r == ref {
			return true
		}
	}
	return false
}

// Content returns the object's ObjectContent. Callers take contentMu
// themselves is unnecessary: ObjectContent implementations are internally
// synchronized.
func (s *SharedObject) Content() ObjectContent {
	s.contentMu.Lock()
	defer s.contentMu.Unlock()
	return s.content
}

// Dump writes a structured diagnostic representation (§6).
func (s *SharedObject) Dump(w io.Writer) error {
	io.WriteString(w, `{"object_id":"`+s.objectID.String()+`","content":`)
	if err := s.Content().Dump(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "}")
	return err
}
