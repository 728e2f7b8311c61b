// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockPeerMessageSender is a hand-maintained stand-in for a mockgen-generated
// mock of PeerMessageSender, kept in sync by hand since this module does not
// run `go generate`.
type MockPeerMessageSender struct {
	ctrl     *gomock.Controller
	recorder *MockPeerMessageSenderMockRecorder
}

type MockPeerMessageSenderMockRecorder struct {
	mock *MockPeerMessageSender
}

func NewMockPeerMessageSender(ctrl *gomock.Controller) *MockPeerMessageSender {
	mock := &MockPeerMessageSender{ctrl: ctrl}
	mock.recorder = &MockPeerMessageSenderMockRecorder{mock}
	return mock
}

func (m *MockPeerMessageSender) EXPECT() *MockPeerMessageSenderMockRecorder {
	return m.recorder
}

func (m *MockPeerMessageSender) SendTo(peer PeerHandle, msg *Message, mode SendMode) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendTo", peer, msg, mode)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockPeerMessageSenderMockRecorder) SendTo(peer, msg, mode interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendTo", reflect.TypeOf((*MockPeerMessageSender)(nil).SendTo), peer, msg, mode)
}

func (m *MockPeerMessageSender) Broadcast(peers []PeerHandle, msg *Message, mode SendMode) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Broadcast", peers, msg, mode)
}

func (mr *MockPeerMessageSenderMockRecorder) Broadcast(peers, msg, mode interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Broadcast", reflect.TypeOf((*MockPeerMessageSender)(nil).Broadcast), peers, msg, mode)
}

var _ PeerMessageSender = (*MockPeerMessageSender)(nil)
