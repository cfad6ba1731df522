package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferShapeFixedAtConstruction(t *testing.T) {
	b := NewBuffer[int](2, 3)
	assert.Equal(t, 2, b.NumberOfChannels())
	assert.Equal(t, 3, b.NumberOfSamples())
}

func TestSetChannelCopiesNotAliases(t *testing.T) {
	b := NewBuffer[int](1, 3)
	src := []int{1, 2, 3}
	b.SetChannel(0, src)
	src[0] = 99
	assert.Equal(t, 1, b.AccessChannel(0)[0], "SetChannel must copy, not alias")
}

func TestSwapChannelExchangesBackingSlices(t *testing.T) {
	b := NewBuffer[int](1, 2)
	b.AccessChannel(0)[0] = 7
	other := []int{42, 43}
	b.SwapChannel(0, &other)
	assert.Equal(t, 7, other[0])
	assert.Equal(t, 42, b.AccessChannel(0)[0])
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBuffer[int](1, 2)
	b.AccessChannel(0)[0] = 5
	clone := b.Clone()
	b.AccessChannel(0)[0] = 6
	assert.Equal(t, 5, clone.AccessChannel(0)[0])
}
