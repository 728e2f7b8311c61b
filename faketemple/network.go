// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package faketemple

import (
	"sync"

	"github.com/luxfi/floatingtemple/engine"
)

// InMemoryNetwork wires a set of in-process TransactionStores together
// without any real transport, for tests. Each store talks to it through a
// peerSender bound to that store's own identity, so HandleMessage always
// sees the true originating peer.
type InMemoryNetwork struct {
	mu       sync.Mutex
	handlers map[engine.PeerHandle]engine.ConnectionHandler
}

// NewInMemoryNetwork returns an empty network.
func NewInMemoryNetwork() *InMemoryNetwork {
	return &InMemoryNetwork{handlers: make(map[engine.PeerHandle]engine.ConnectionHandler)}
}

// Register associates peer with the ConnectionHandler that should receive
// messages addressed to it (normally a *engine.TransactionStore) and
// returns the engine.PeerMessageSender that peer should use to send.
func (n *InMemoryNetwork) Register(peer engine.PeerHandle, h engine.ConnectionHandler) engine.PeerMessageSender {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[peer] = h
	for p, other := range n.handlers {
		if p != peer {
			other.NotifyNewConnection(peer)
			h.NotifyNewConnection(p)
		}
	}
	return &peerSender{net: n, from: peer}
}

func (n *InMemoryNetwork) sendTo(from, to engine.PeerHandle, msg *engine.Message, mode engine.SendMode) {
	n.mu.Lock()
	h, ok := n.handlers[to]
	n.mu.Unlock()
	if !ok {
		return
	}
	if mode == engine.Blocking {
		h.HandleMessage(from, msg)
		return
	}
	go h.HandleMessage(from, msg)
}

// peerSender is the engine.PeerMessageSender one store uses; it stamps
// every outgoing message with that store's own peer handle.
type peerSender struct {
	net  *InMemoryNetwork
	from engine.PeerHandle
}

func (s *peerSender) SendTo(peer engine.PeerHandle, msg *engine.Message, mode engine.SendMode) error {
	s.net.sendTo(s.from, peer, msg, mode)
	return nil
}

func (s *peerSender) Broadcast(peers []engine.PeerHandle, msg *engine.Message, mode engine.SendMode) {
	for _, p := range peers {
		s.net.sendTo(s.from, p, msg, mode)
	}
}

var _ engine.PeerMessageSender = (*peerSender)(nil)
