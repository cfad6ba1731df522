package dispatch

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regaccess-go/accessmode"
	"regaccess-go/transfer"
)

// fakeElement is a minimal Element whose ReadTransfer increments a
// shared counter, letting tests observe how many times the underlying
// transfer actually ran regardless of how many members shared it.
type fakeElement struct {
	target   transfer.ElementID
	reads    *int64
	posts    int
	transErr error
}

func (f *fakeElement) PreRead(ctx context.Context, typ transfer.Type) {}

func (f *fakeElement) ReadTransfer(ctx context.Context) {
	atomic.AddInt64(f.reads, 1)
}

func (f *fakeElement) PostRead(typ transfer.Type, updateDataBuffer bool) error {
	f.posts++
	return f.transErr
}

func (f *fakeElement) TransferTarget() transfer.ElementID { return f.target }

func TestGroupRunsEveryMembersPostRead(t *testing.T) {
	g := NewGroup()
	var reads int64
	a := &fakeElement{target: newElementIDForTest(), reads: &reads}
	b := &fakeElement{target: newElementIDForTest(), reads: &reads}
	g.AddRead(a)
	g.AddRead(b)

	require.NoError(t, g.Execute(context.Background()))
	assert.Equal(t, 1, a.posts)
	assert.Equal(t, 1, b.posts)
	assert.Equal(t, int64(2), reads, "two distinct targets must each be transferred once")
}

func TestGroupMergesSharedTransferTarget(t *testing.T) {
	g := NewGroup()
	shared := newElementIDForTest()
	var reads int64
	a := &fakeElement{target: shared, reads: &reads}
	b := &fakeElement{target: shared, reads: &reads}
	c := &fakeElement{target: shared, reads: &reads}
	g.AddRead(a)
	g.AddRead(b)
	g.AddRead(c)

	require.NoError(t, g.Execute(context.Background()))
	assert.Equal(t, int64(1), reads, "members sharing one TransferTarget must transfer exactly once")
	assert.Equal(t, 1, a.posts)
	assert.Equal(t, 1, b.posts)
	assert.Equal(t, 1, c.posts)
}

func TestGroupPropagatesFirstPostReadError(t *testing.T) {
	g := NewGroup()
	boom := assertError("boom")
	var reads int64
	g.AddRead(&fakeElement{target: newElementIDForTest(), reads: &reads, transErr: boom})
	g.AddRead(&fakeElement{target: newElementIDForTest(), reads: &reads})

	err := g.Execute(context.Background())
	require.Error(t, err)
}

type assertError string

func (e assertError) Error() string { return string(e) }

// newElementIDForTest mints a distinct transfer.ElementID for group tests.
// A bare NDRegisterAccessor satisfies doHooks via its own default method
// bodies, so it can stand in as its own impl just to obtain a fresh ID.
func newElementIDForTest() transfer.ElementID {
	probe := &transfer.NDRegisterAccessor[int32]{}
	probe.InitND(probe, "probe", accessmode.Set{}, 1, 1)
	return probe.TransferTarget()
}
