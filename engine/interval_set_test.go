// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSetMergesOverlapping(t *testing.T) {
	s := NewIntervalSet[TransactionID]()
	s.AddInterval(tid(0, 10, 0), tid(0, 20, 0))
	s.AddInterval(tid(0, 15, 0), tid(0, 25, 0))

	assert.Equal(t, 1, s.Len())
	ivs := s.Intervals()
	assert.Equal(t, tid(0, 10, 0), ivs[0].Start)
	assert.Equal(t, tid(0, 25, 0), ivs[0].End)
}

func TestIntervalSetMergesAdjacent(t *testing.T) {
	s := NewIntervalSet[TransactionID]()
	s.AddInterval(tid(0, 10, 0), tid(0, 20, 0))
	s.AddInterval(tid(0, 20, 0), tid(0, 30, 0))
	assert.Equal(t, 1, s.Len())
}

func TestIntervalSetOrderIndependent(t *testing.T) {
	forward := NewIntervalSet[TransactionID]()
	forward.AddInterval(tid(0, 0, 0), tid(0, 5, 0))
	forward.AddInterval(tid(0, 10, 0), tid(0, 15, 0))
	forward.AddInterval(tid(0, 5, 0), tid(0, 10, 0))

	backward := NewIntervalSet[TransactionID]()
	backward.AddInterval(tid(0, 5, 0), tid(0, 10, 0))
	backward.AddInterval(tid(0, 10, 0), tid(0, 15, 0))
	backward.AddInterval(tid(0, 0, 0), tid(0, 5, 0))

	assert.True(t, forward.Equal(backward))
	assert.Equal(t, 1, forward.Len())
}

func TestIntervalSetContains(t *testing.T) {
	s := NewIntervalSet[TransactionID]()
	s.AddInterval(tid(0, 10, 0), tid(0, 20, 0))

	assert.False(t, s.Contains(tid(0, 9, 0)))
	assert.True(t, s.Contains(tid(0, 10, 0)))
	assert.True(t, s.Contains(tid(0, 19, 0)))
	assert.False(t, s.Contains(tid(0, 20, 0)))
}

func TestIntervalSetEmptyIntervalIsNoop(t *testing.T) {
	s := NewIntervalSet[TransactionID]()
	s.AddInterval(tid(0, 10, 0), tid(0, 10, 0))
	assert.Equal(t, 0, s.Len())
}
