package transfer

import (
	"context"

	"regaccess-go/accessmode"
	"regaccess-go/regerr"
	"regaccess-go/vnum"
)

// Accessor is the public surface of any N-D register accessor: the typed
// buffer plus the Base protocol methods, used by dispatch, decorators and
// conformance without depending on a concrete leaf type (spec.md §4.2).
type Accessor[T any] interface {
	Name() string
	ID() ElementID
	AccessModeFlags() accessmode.Set
	Version() vnum.Number
	Validity() regerr.DataValidity
	IsReadable() bool
	IsWriteable() bool
	IsReadOnly() bool

	Read(ctx context.Context) error
	ReadNonBlocking(ctx context.Context) (bool, error)
	ReadLatest(ctx context.Context) (bool, error)
	Write(ctx context.Context, v vnum.Number) (bool, error)
	WriteDestructively(ctx context.Context, v vnum.Number) (bool, error)
	Interrupt() error

	NumberOfChannels() int
	NumberOfSamples() int
	AccessChannel(i int) []T
	SetChannel(i int, data []T)
}

// NDRegisterAccessor is the reusable skeleton every concrete leaf accessor
// embeds: Base's protocol engine plus the typed Buffer and default no-op
// hook bodies, so a leaf only has to override the hooks it cares about
// (spec.md §4.2). A leaf constructs it then reassigns Base.impl to itself
// via Base.Init so virtual dispatch reaches the leaf's overrides, not these
// defaults.
type NDRegisterAccessor[T any] struct {
	Base[T]
	buf Buffer[T]
}

// InitND allocates the buffer and wires Base in one call; leaves typically
// embed NDRegisterAccessor and call this from their own constructor.
func (n *NDRegisterAccessor[T]) InitND(impl doHooks[T], name string, flags accessmode.Set, channels, samples int) {
	n.buf = NewBuffer[T](channels, samples)
	n.Base.Init(impl, name, flags)
}

func (n *NDRegisterAccessor[T]) NumberOfChannels() int      { return n.buf.NumberOfChannels() }
func (n *NDRegisterAccessor[T]) NumberOfSamples() int       { return n.buf.NumberOfSamples() }
func (n *NDRegisterAccessor[T]) AccessChannel(i int) []T    { return n.buf.AccessChannel(i) }
func (n *NDRegisterAccessor[T]) SetChannel(i int, data []T) { n.buf.SetChannel(i, data) }

// Buf exposes the underlying buffer by pointer for leaf doPostRead/doPreWrite
// hooks and for MakeCopyDecorator; it is not part of the Accessor interface.
func (n *NDRegisterAccessor[T]) Buf() *Buffer[T] { return &n.buf }

// TransferTarget identifies the underlying physical resource this
// accessor ultimately reads from: for a plain leaf that's its own ID;
// a decorator overrides this to delegate down to whatever it wraps, so
// a dispatch.Group can tell when two members would otherwise perform
// the same hardware transfer twice.
func (n *NDRegisterAccessor[T]) TransferTarget() ElementID { return n.ID() }

// Default hook bodies: a leaf backed purely by a synchronous register
// (no interrupt source, no special setup) can skip implementing any of
// these by embedding NDRegisterAccessor and letting it satisfy doHooks on
// its behalf, then overriding only doReadTransferSynchronously and
// doWriteTransfer.

func (n *NDRegisterAccessor[T]) doPreRead(ctx context.Context, typ Type) error { return nil }

func (n *NDRegisterAccessor[T]) doReadTransferSynchronously(ctx context.Context) error {
	return regerr.Logic("read", "accessor %q is not readable", n.Name())
}

func (n *NDRegisterAccessor[T]) doPostRead(typ Type, updateDataBuffer bool) {
	if !updateDataBuffer {
		return
	}
	if buf, v, validity, ok := n.PendingAsyncValue(); ok {
		n.buf = buf
		n.SetVersion(v)
		n.SetValidity(validity)
	}
}

func (n *NDRegisterAccessor[T]) doPreWrite(ctx context.Context, typ Type, v vnum.Number) error {
	return nil
}

func (n *NDRegisterAccessor[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	return false, regerr.Logic("write", "accessor %q is not writeable", n.Name())
}

func (n *NDRegisterAccessor[T]) doWriteTransferDestructively(ctx context.Context, v vnum.Number) (bool, error) {
	return n.doWriteTransfer(ctx, v)
}

func (n *NDRegisterAccessor[T]) doPostWrite(typ Type, v vnum.Number) {}

func (n *NDRegisterAccessor[T]) isReadable() bool  { return false }
func (n *NDRegisterAccessor[T]) isWriteable() bool { return false }

// MakeCopyDecorator builds a CopyDecorator sharing this accessor's queue
// and buffer shape but holding an independent, copy-isolated Buffer of its
// own (spec.md §4.3): the idiomatic equivalent of
// ChimeraTK::TransferElement::makeCopyRegisterDecorator.
func (n *NDRegisterAccessor[T]) MakeCopyDecorator() *CopyDecorator[T] {
	d := &CopyDecorator[T]{}
	d.InitDecorator(d, n, n.Name()+"_copy")
	return d
}
