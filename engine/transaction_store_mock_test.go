// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

// noopObject is the smallest possible LocalObject, used where a test only
// cares about a SharedObject existing, not what it holds.
type noopObject struct{}

func (noopObject) Clone() LocalObject { return noopObject{} }
func (noopObject) Serialize(SerializationContext) ([]byte, error) { return nil, nil }
func (noopObject) InvokeMethod(MethodContext, *ObjectReference, string, []Value) (LocalObject, Value, error) {
	return noopObject{}, EmptyValue(), nil
}
func (noopObject) Dump(w io.Writer) error { _, err := io.WriteString(w, "noopObject"); return err }

// TestCreateTransactionBroadcastsToInterestedPeers grounds §4.K's fan-out:
// committing a transaction on an object with a known interested peer sends
// that peer MsgApplyTransaction, and leaves no goroutines behind.
func TestCreateTransactionBroadcastsToInterestedPeers(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	sender := NewMockPeerMessageSender(ctrl)

	registry := NewPeerRegistry()
	local := registry.Intern("A")
	other := registry.Intern("B")

	store := NewTransactionStore(local, registry, sender)

	ref, err := store.CreateBoundObjectReference("", noopObject{})
	require.NoError(t, err)
	ref.SharedObject().MergeInterestedPeers([]PeerHandle{other})

	sender.EXPECT().
		Broadcast(gomock.Eq([]PeerHandle{other}), gomock.Any(), gomock.Eq(NonBlocking)).
		Times(1)

	txn := &SharedObjectTransaction{
		Events:     []CommittedEvent{NewObjectCreationEvent(NewLiveObject(noopObject{}))},
		OriginPeer: local,
	}
	_, err = store.CreateTransaction(
		map[*ObjectReference]*SharedObjectTransaction{ref: txn},
		nil,
		store.GetCurrentSequencePoint(),
	)
	require.NoError(t, err)
}
