package accessmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regaccess-go/regerr"
)

func TestRoundTrip(t *testing.T) {
	sets := []Set{
		{},
		New(Raw),
		New(WaitForNewData),
		New(Raw, WaitForNewData),
	}
	for _, s := range sets {
		got, err := Deserialize(s.Serialize())
		require.NoError(t, err)
		assert.True(t, got.Equal(s), "round trip of %q produced %q", s.Serialize(), got.Serialize())
	}
}

func TestDeserializeUnknownFlag(t *testing.T) {
	_, err := Deserialize("bogus")
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))
}

func TestHasAndAddRemove(t *testing.T) {
	s := New(Raw)
	assert.True(t, s.Has(Raw))
	assert.False(t, s.Has(WaitForNewData))

	s = s.Add(WaitForNewData)
	assert.True(t, s.Has(WaitForNewData))

	s = s.Remove(Raw)
	assert.False(t, s.Has(Raw))
	assert.True(t, s.Has(WaitForNewData))
}

func TestCheckKnown(t *testing.T) {
	known := New(Raw, WaitForNewData)
	assert.NoError(t, New(Raw).CheckKnown(known))
	assert.NoError(t, Set{}.CheckKnown(known))
}

func TestLessGivesTotalOrder(t *testing.T) {
	a := New(Raw)
	b := New(Raw, WaitForNewData)
	assert.True(t, a.Less(b) || b.Less(a))
	assert.False(t, a.Less(a))
}

func TestSerializeEmpty(t *testing.T) {
	assert.Equal(t, "", Set{}.Serialize())
}
