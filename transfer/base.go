package transfer

import (
	"context"

	"regaccess-go/accessmode"
	"regaccess-go/backend"
	"regaccess-go/regerr"
	"regaccess-go/vnum"
)

// doHooks is the contract every concrete accessor (or decorator) implements;
// it is the Go replacement for the source's manual virtual-function-template
// vtable (spec.md §9): a self-referencing interface field stands in for
// virtual dispatch, generalized over UserType through Go's own generics
// instead of a hand-rolled one.
//
// No method here may perform actual hardware I/O except doReadTransferSynchronously,
// doWriteTransfer and doWriteTransferDestructively — the preX/postX hooks set up or
// tear down state only, matching the source's "no actual communication" contract.
type doHooks[T any] interface {
	doPreRead(ctx context.Context, typ Type) error
	doReadTransferSynchronously(ctx context.Context) error
	doPostRead(typ Type, updateDataBuffer bool)
	doPreWrite(ctx context.Context, typ Type, v vnum.Number) error
	doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error)
	doWriteTransferDestructively(ctx context.Context, v vnum.Number) (bool, error)
	doPostWrite(typ Type, v vnum.Number)
	isReadable() bool
	isWriteable() bool
}

// Base is the non-generic-in-spirit protocol engine embedded by every
// accessor: the pre/transfer/post state machine, exception plumbing,
// version/validity bookkeeping, and the optional async read queue. It is
// generic only because the queue it may own carries typed buffers.
type Base[T any] struct {
	impl  doHooks[T]
	name  string
	id    ElementID
	flags accessmode.Set

	version  vnum.Number
	validity regerr.DataValidity

	activeException error

	readInProgress  bool
	writeInProgress bool

	exceptionBackend backend.Backend
	queue            *AsyncQueue[T]

	// pendingValue carries a popped async-queue item from ReadTransfer to
	// PostRead within one public call; the source instead has the backend
	// write straight into the receive buffer, but doPostRead here needs the
	// delivered buffer, version and validity to commit them in one place.
	pendingValue *queueItem[T]
}

// Init wires the self-referencing impl and access-mode flags. Concrete
// types reach it from their constructor through NDRegisterAccessor.InitND,
// after the outer struct is addressable, e.g.:
//
//	a := &Accessor[T]{be: b, reg: r}
//	a.InitND(a, path, flags, channels, samples)
func (b *Base[T]) Init(impl doHooks[T], name string, flags accessmode.Set) {
	b.impl = impl
	b.name = name
	b.flags = flags
	b.id = newElementID()
	b.version = vnum.Null
	b.validity = regerr.Ok
	if flags.Has(accessmode.WaitForNewData) {
		b.queue = NewAsyncQueue[T](3)
	}
}

func (b *Base[T]) Name() string                        { return b.name }
func (b *Base[T]) ID() ElementID                        { return b.id }
func (b *Base[T]) AccessModeFlags() accessmode.Set      { return b.flags }
func (b *Base[T]) Version() vnum.Number                 { return b.version }
func (b *Base[T]) Validity() regerr.DataValidity        { return b.validity }
func (b *Base[T]) SetValidity(v regerr.DataValidity)    { b.validity = v }
func (b *Base[T]) ExceptionBackend() backend.Backend    { return b.exceptionBackend }
func (b *Base[T]) SetExceptionBackend(be backend.Backend) { b.exceptionBackend = be }

func (b *Base[T]) IsReadable() bool  { return b.impl.isReadable() }
func (b *Base[T]) IsWriteable() bool { return b.impl.isWriteable() }
func (b *Base[T]) IsReadOnly() bool  { return b.IsReadable() && !b.IsWriteable() }

// ReadQueue returns the queue backing this accessor's async reads, or nil
// if it is not a wait_for_new_data accessor. Decorators wrapping an async
// target call SetReadQueue with this value so both ends share one queue,
// mirroring the source's _readQueue = target->getReadQueue().
func (b *Base[T]) ReadQueue() *AsyncQueue[T] { return b.queue }
func (b *Base[T]) SetReadQueue(q *AsyncQueue[T]) { b.queue = q }

// PendingAsyncValue returns the value popped by the last ReadTransfer on a
// wait_for_new_data accessor, for doPostRead to commit into the
// application buffer. ok is false when there is nothing to commit (a
// synchronous accessor, or an active exception).
func (b *Base[T]) PendingAsyncValue() (buf Buffer[T], v vnum.Number, validity regerr.DataValidity, ok bool) {
	if b.pendingValue == nil {
		return Buffer[T]{}, vnum.Number{}, regerr.Ok, false
	}
	return b.pendingValue.buf, b.pendingValue.version, b.pendingValue.validity, true
}

// SetVersion lets doPostRead record the version number carried by a
// freshly received value (e.g. from a synchronous accessor's own clock).
func (b *Base[T]) SetVersion(v vnum.Number) { b.version = v }

// ---- staged protocol, public so decorators and a TransferGroup can drive
// a shared target without going through the outer public Read/Write. ----

// PreRead runs doPreRead at most once per public call; a re-entrant PreRead
// without an intervening PostRead is a no-op (spec.md §4.1).
func (b *Base[T]) PreRead(ctx context.Context, typ Type) {
	if b.readInProgress {
		return
	}
	b.activeException = nil
	b.readInProgress = true
	if err := b.impl.doPreRead(ctx, typ); err != nil {
		b.activeException = err
	}
}

// ReadTransfer performs the hardware (or queue) transfer. Exceptions are
// captured into the active-exception slot rather than returned, matching
// handleTransferException in the source.
func (b *Base[T]) ReadTransfer(ctx context.Context) {
	if b.activeException != nil {
		return
	}
	if b.flags.Has(accessmode.WaitForNewData) {
		item, err := b.queue.popWait(ctx)
		if err != nil {
			b.activeException = err
			return
		}
		if item.kind == itemException {
			b.activeException = item.err
			return
		}
		b.pendingValue = &item
		return
	}
	if err := b.impl.doReadTransferSynchronously(ctx); err != nil {
		b.activeException = err
	}
}

// readTransferNonBlocking is the readNonBlocking-mode transfer: returns
// whether the buffer should be updated.
func (b *Base[T]) readTransferNonBlocking(ctx context.Context) bool {
	if b.activeException != nil {
		return false
	}
	if b.flags.Has(accessmode.WaitForNewData) {
		item, ok := b.queue.popNonWait()
		if !ok {
			return false
		}
		if item.kind == itemException {
			b.activeException = item.err
			return false
		}
		b.pendingValue = &item
		return true
	}
	if err := b.impl.doReadTransferSynchronously(ctx); err != nil {
		b.activeException = err
		return false
	}
	return true
}

// PostRead commits the transfer into the application buffer via doPostRead
// iff updateDataBuffer is true and no active exception is present, then
// re-throws any active exception (spec.md §4.1).
func (b *Base[T]) PostRead(typ Type, updateDataBuffer bool) error {
	if b.readInProgress {
		b.readInProgress = false
		b.impl.doPostRead(typ, updateDataBuffer && b.activeException == nil)
	}
	b.pendingValue = nil
	if b.activeException != nil {
		err := b.activeException
		if regerr.IsRuntime(err) && b.exceptionBackend != nil {
			b.exceptionBackend.SetException(err.Error())
		}
		return err
	}
	return nil
}

// PreWrite validates the version number and snapshots state for
// transmission. A version older than the current one fails with a
// logic-error without calling any transfer (spec.md §8 property 6).
func (b *Base[T]) PreWrite(ctx context.Context, typ Type, v vnum.Number) {
	if b.writeInProgress {
		return
	}
	b.activeException = nil
	if v.Less(b.version) {
		b.activeException = regerr.Logic("write", "version number is older than the current version of %q", b.name)
		return
	}
	b.writeInProgress = true
	if err := b.impl.doPreWrite(ctx, typ, v); err != nil {
		b.activeException = err
	}
}

// WriteTransfer performs the write, capturing any runtime-error.
func (b *Base[T]) WriteTransfer(ctx context.Context, v vnum.Number) bool {
	if b.activeException != nil {
		return true
	}
	lost, err := b.impl.doWriteTransfer(ctx, v)
	if err != nil {
		b.activeException = err
		return true
	}
	return lost
}

// WriteTransferDestructively is like WriteTransfer but the implementation
// may leave the user buffer contents undefined on return.
func (b *Base[T]) WriteTransferDestructively(ctx context.Context, v vnum.Number) bool {
	if b.activeException != nil {
		return true
	}
	lost, err := b.impl.doWriteTransferDestructively(ctx, v)
	if err != nil {
		b.activeException = err
		return true
	}
	return lost
}

// PostWrite advances the current version iff no active exception is
// present, then re-throws any active exception (spec.md §4.1, §8
// property 5).
func (b *Base[T]) PostWrite(typ Type, v vnum.Number) error {
	if b.writeInProgress {
		b.writeInProgress = false
		b.impl.doPostWrite(typ, v)
	}
	if b.activeException != nil {
		err := b.activeException
		if regerr.IsRuntime(err) && b.exceptionBackend != nil {
			b.exceptionBackend.SetException(err.Error())
		}
		return err
	}
	b.version = v
	return nil
}

// Interrupt unblocks a concurrent wait_for_new_data read by injecting a
// thread-interrupted exception into the queue. Valid only with
// wait_for_new_data; a logic-error is returned otherwise. The accessor
// remains usable afterward (spec.md §8 property 7).
func (b *Base[T]) Interrupt() error {
	if !b.flags.Has(accessmode.WaitForNewData) {
		return regerr.Logic("interrupt", "accessor %q does not have wait_for_new_data set", b.name)
	}
	b.queue.PushException(regerr.Interrupted("interrupt"))
	return nil
}

// ---- public read/write operations ----

// Read performs a synchronous blocking read (spec.md §4.1).
func (b *Base[T]) Read(ctx context.Context) error {
	b.readInProgress = false
	b.PreRead(ctx, Read)
	b.ReadTransfer(ctx)
	return b.PostRead(Read, b.activeException == nil)
}

// ReadNonBlocking returns whether the application buffer was updated.
func (b *Base[T]) ReadNonBlocking(ctx context.Context) (bool, error) {
	b.readInProgress = false
	b.PreRead(ctx, ReadNonBlocking)
	updated := b.readTransferNonBlocking(ctx)
	err := b.PostRead(ReadNonBlocking, updated)
	return updated && err == nil, err
}

// ReadLatest drains the read queue, returning whether any new value
// arrived. Without wait_for_new_data this is equivalent to Read and always
// returns true (spec.md §4.1, §8 property 8).
func (b *Base[T]) ReadLatest(ctx context.Context) (bool, error) {
	if !b.flags.Has(accessmode.WaitForNewData) {
		if err := b.Read(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	var any bool
	for {
		updated, err := b.ReadNonBlocking(ctx)
		if err != nil {
			return any, err
		}
		if !updated {
			return any, nil
		}
		any = true
	}
}

// Write writes the current buffer with version v (fresh, by default).
// Returns true iff previously queued, not-yet-transmitted data was lost.
func (b *Base[T]) Write(ctx context.Context, v vnum.Number) (bool, error) {
	if v.IsNull() {
		v = vnum.New()
	}
	b.writeInProgress = false
	b.PreWrite(ctx, Write, v)
	lost := b.WriteTransfer(ctx, v)
	return lost, b.PostWrite(Write, v)
}

// WriteDestructively is like Write, but the implementation may leave the
// user buffer contents undefined on return.
func (b *Base[T]) WriteDestructively(ctx context.Context, v vnum.Number) (bool, error) {
	if v.IsNull() {
		v = vnum.New()
	}
	b.writeInProgress = false
	b.PreWrite(ctx, WriteDestructively, v)
	lost := b.WriteTransferDestructively(ctx, v)
	return lost, b.PostWrite(WriteDestructively, v)
}
