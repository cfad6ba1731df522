package dummy

import (
	"context"

	"regaccess-go/accessmode"
	"regaccess-go/dispatch"
	"regaccess-go/regerr"
	"regaccess-go/transfer"
	"regaccess-go/vnum"
)

// Accessor is a register accessor backed by one of the dummy backend's
// in-memory registers, converting the canonical float64 storage to and
// from UserType (spec.md §4.6). Push-type ("PUSH_READ") registers are
// instead served by wrapping a synchronous Accessor with
// transfer.PushDecorator; see Backend.GetAccessor.
type Accessor[T Numeric] struct {
	transfer.NDRegisterAccessor[T]
	be       *Backend
	reg      *register
	writable bool
	skipBook bool
}

// GetAccessor builds (or re-wraps, for PUSH_READ paths) an accessor for
// path with the given shape and flags.
func GetAccessor[T Numeric](b *Backend, path string, channels, samples int, flags accessmode.Set) (transfer.Accessor[T], error) {
	if err := flags.CheckKnown(accessmode.New(accessmode.Raw, accessmode.WaitForNewData)); err != nil {
		return nil, err
	}
	if b.IsInterruptPseudoRegister(path) {
		return newInterruptTrigger[T](b, path)
	}
	r, err := b.lookup(path)
	if err != nil {
		return nil, err
	}

	push := isPushReadPath(path)
	writable := r.writable || isDummyWriteablePath(path)
	skipBook := isDummyWriteablePath(path)

	if flags.Has(accessmode.WaitForNewData) && !push {
		if r.info == nil || !r.info.HasInterrupt() {
			return nil, regerr.Logic("dummy.GetAccessor", "register %q has no interrupt binding for wait_for_new_data", path)
		}
		return newInterruptBoundAccessor[T](b, path, r, channels, samples)
	}

	base := &Accessor[T]{be: b, reg: r, writable: writable, skipBook: skipBook}
	syncFlags := flags.Remove(accessmode.WaitForNewData)
	base.InitND(base, path, syncFlags, channels, samples)

	if !push {
		return base, nil
	}

	dec, derr := transfer.NewPushDecorator[T](&base.NDRegisterAccessor, path)
	if derr != nil {
		return nil, derr
	}
	h := &pushAccessorHandle[T]{dec: dec}
	b.pushMu.Lock()
	b.pushDecs[path] = append(b.pushDecs[path], h)
	b.pushMu.Unlock()
	return dec, nil
}

// newInterruptBoundAccessor builds an AsyncAccessor fed by the register's
// catalogue-declared interrupt: a write to the matching
// /DUMMY_INTERRUPT_<controller>_<interrupt> pseudo-register runs the
// dispatcher's shared synchronous read and delivers it, rather than the
// PUSH_READ-path's explicit Trigger() (spec.md §4.4/§4.6).
func newInterruptBoundAccessor[T Numeric](b *Backend, path string, r *register, channels, samples int) (transfer.Accessor[T], error) {
	read := func(ctx context.Context) (transfer.Buffer[T], regerr.DataValidity, error) {
		buf := transfer.NewBuffer[T](channels, samples)
		data, _, err := b.readRaw(r)
		if err != nil {
			return buf, regerr.Ok, err
		}
		for i, ch := range data {
			out := buf.AccessChannel(i)
			for j, raw := range ch {
				out[j] = T(raw)
			}
		}
		return buf, regerr.Ok, nil
	}
	acc := transfer.NewAsyncAccessor[T](path, channels, samples, func(ctx context.Context) (transfer.Buffer[T], vnum.Number, regerr.DataValidity, error) {
		buf, validity, err := read(ctx)
		return buf, vnum.New(), validity, err
	})
	id := dispatch.ID{Controller: r.info.InterruptController, Interrupt: r.info.InterruptID}
	dispatch.RegisterShared(b.dispatcher, id, path, acc, read)

	h := &asyncBoundHandle[T]{acc: acc}
	b.pushMu.Lock()
	b.pushDecs[path] = append(b.pushDecs[path], h)
	b.pushMu.Unlock()
	return acc, nil
}

// asyncBoundHandle adapts an interrupt-bound AsyncAccessor into the
// backend's untyped activation surface, the same role pushAccessorHandle
// plays for PUSH_READ-path accessors.
type asyncBoundHandle[T Numeric] struct {
	acc *transfer.AsyncAccessor[T]
}

func (h *asyncBoundHandle[T]) activate(ctx context.Context) { h.acc.Activate(ctx) }

// trigger is not meaningful for an interrupt-bound accessor: delivery is
// driven by the catalogue interrupt line firing, not by an explicit push
// call, so TriggerPush refuses rather than silently doing nothing.
func (h *asyncBoundHandle[T]) trigger(ctx context.Context) error {
	return regerr.Logic("triggerPush", "accessor is interrupt-bound, not push-type; fire its catalogue interrupt instead")
}

// deactivate delivers the one fault notification every active async
// accessor is owed (spec.md §4.4/§7: "the backend pushes one exception to
// every active accessor's queue and deactivates them") before actually
// deactivating, so the application's next read observes runtime-error
// rather than silently blocking or seeing a stale value.
func (h *asyncBoundHandle[T]) deactivate() {
	h.acc.SendException(regerr.Runtime("read", "backend is faulty"))
	h.acc.Deactivate()
}

func (a *Accessor[T]) isReadable() bool  { return true }
func (a *Accessor[T]) isWriteable() bool { return a.writable }

func (a *Accessor[T]) doReadTransferSynchronously(ctx context.Context) error {
	if err := a.be.CheckFunctional("read"); err != nil {
		return err
	}
	data, v, err := a.be.readRaw(a.reg)
	if err != nil {
		return err
	}
	for i, ch := range data {
		out := a.Buf().AccessChannel(i)
		for j, raw := range ch {
			out[j] = T(raw)
		}
	}
	a.SetVersion(v)
	return nil
}

func (a *Accessor[T]) doPostRead(typ transfer.Type, updateDataBuffer bool) {
	// values are written straight into the buffer by doReadTransferSynchronously;
	// nothing further to commit here, matching a plain (non-decorator) leaf.
}

func (a *Accessor[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	if !a.writable {
		return false, regerr.Logic("write", "register %q is read-only", a.Name())
	}
	if err := a.be.CheckFunctional("write"); err != nil {
		return false, err
	}
	channels := a.Buf().NumberOfChannels()
	data := make([][]float64, channels)
	for i := 0; i < channels; i++ {
		src := a.Buf().AccessChannel(i)
		data[i] = make([]float64, len(src))
		for j, sample := range src {
			data[i][j] = float64(sample)
		}
	}
	if err := a.be.writeRaw(a.reg, data, !a.skipBook); err != nil {
		return false, err
	}
	return false, nil
}

func (a *Accessor[T]) doWriteTransferDestructively(ctx context.Context, v vnum.Number) (bool, error) {
	return a.doWriteTransfer(ctx, v)
}

// pushAccessorHandle adapts a transfer.PushDecorator into the backend's
// untyped activation surface.
type pushAccessorHandle[T Numeric] struct {
	dec *transfer.PushDecorator[T]
}

func (h *pushAccessorHandle[T]) activate(ctx context.Context) {
	_ = h.dec.Trigger(ctx)
}

func (h *pushAccessorHandle[T]) deactivate() {
	h.dec.Base.ReadQueue().PushException(regerr.Runtime("read", "backend is faulty"))
}

// trigger re-reads the underlying register and pushes the result into
// the decorator's queue, the same operation activate performs, exposed
// by name through Backend.TriggerPush so callers can push an
// arbitrary new value at any point in the accessor's lifetime rather
// than only once at activation.
func (h *pushAccessorHandle[T]) trigger(ctx context.Context) error {
	return h.dec.Trigger(ctx)
}

// interruptTrigger is a write-only pseudo-register: writing any value fires
// the /DUMMY_INTERRUPT_<controller>_<interrupt> line instead of touching
// any real register, letting tests simulate hardware interrupts through the
// ordinary accessor API (spec.md §4.6).
type interruptTrigger[T Numeric] struct {
	transfer.NDRegisterAccessor[T]
	be hasDispatch
	id dispatchID
}

type hasDispatch interface {
	dispatchTo(ctx context.Context, controller, interrupt string)
}

type dispatchID struct{ controller, interrupt string }

func newInterruptTrigger[T Numeric](b *Backend, path string) (transfer.Accessor[T], error) {
	controller, interrupt, err := parseInterruptPath(path)
	if err != nil {
		return nil, err
	}
	if !b.cat.HasInterrupt(controller, interrupt) {
		return nil, regerr.Logic("dummy.GetAccessor", "no such interrupt %s/%s in the catalogue's interrupt table", controller, interrupt)
	}
	t := &interruptTrigger[T]{be: b, id: dispatchID{controller, interrupt}}
	t.InitND(t, path, accessmode.Set{}, 1, 1)
	return t, nil
}

func (t *interruptTrigger[T]) isReadable() bool  { return false }
func (t *interruptTrigger[T]) isWriteable() bool { return true }

func (t *interruptTrigger[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	t.be.dispatchTo(ctx, t.id.controller, t.id.interrupt)
	return false, nil
}

func (t *interruptTrigger[T]) doWriteTransferDestructively(ctx context.Context, v vnum.Number) (bool, error) {
	return t.doWriteTransfer(ctx, v)
}
