// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package utils holds the small CLI flag and config helpers engine-node
// builds on, kept separate from cmd/engine-node so they can be shared by
// other binaries without pulling in the node's own main package.
package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// PeerSetValue is a pflag.Value that accumulates repeated --peer flags
// into an ordered, de-duplicated list of peer ids.
type PeerSetValue struct {
	seen  map[string]struct{}
	peers []string
}

// NewPeerSetValue returns an empty PeerSetValue.
func NewPeerSetValue() *PeerSetValue {
	return &PeerSetValue{seen: make(map[string]struct{})}
}

func (v *PeerSetValue) String() string { return strings.Join(v.peers, ",") }

// Set implements pflag.Value, ignoring a peer id already seen rather than
// erroring, so the same --peer can appear in both a config file and a flag
// override without failing.
func (v *PeerSetValue) Set(raw string) error {
	if raw == "" {
		return fmt.Errorf("peer id must not be empty")
	}
	if _, ok := v.seen[raw]; ok {
		return nil
	}
	v.seen[raw] = struct{}{}
	v.peers = append(v.peers, raw)
	return nil
}

func (v *PeerSetValue) Type() string { return "peer" }

// Peers returns every distinct peer id seen, in first-seen order.
func (v *PeerSetValue) Peers() []string { return v.peers }

// BindPeerFlag registers a repeatable --peer flag on fs backed by a fresh
// PeerSetValue, returning it so the caller can read Peers() after fs.Parse.
func BindPeerFlag(fs *pflag.FlagSet) *PeerSetValue {
	v := NewPeerSetValue()
	fs.Var(v, "peer", "address of another cluster member (repeatable)")
	return v
}
