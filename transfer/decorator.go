package transfer

import (
	"context"

	"regaccess-go/accessmode"
	"regaccess-go/regerr"
	"regaccess-go/vnum"
)

// Decorator wraps a target accessor and forwards every hook unchanged,
// the base for CopyDecorator and any future behavior-modifying wrapper
// (spec.md §4.3). Embedding this and overriding only the hooks that need
// to differ is the idiomatic-Go analogue of the source's
// NDRegisterAccessorDecorator template.
type Decorator[T any] struct {
	NDRegisterAccessor[T]
	target *NDRegisterAccessor[T]
}

// InitDecorator wires impl, shares the target's read queue (matching the
// source's `_readQueue = _target->getReadQueue()`), and copies the
// target's buffer shape.
func (d *Decorator[T]) InitDecorator(impl doHooks[T], target *NDRegisterAccessor[T], name string) {
	d.target = target
	d.InitND(impl, name, target.AccessModeFlags(), target.buf.NumberOfChannels(), target.buf.NumberOfSamples())
	d.Base.SetReadQueue(target.Base.ReadQueue())
}

func (d *Decorator[T]) doPreRead(ctx context.Context, typ Type) error {
	d.target.PreRead(ctx, typ)
	return nil
}

func (d *Decorator[T]) doReadTransferSynchronously(ctx context.Context) error {
	d.target.ReadTransfer(ctx)
	return d.target.activeException
}

func (d *Decorator[T]) doPostRead(typ Type, updateDataBuffer bool) {
	err := d.target.PostRead(typ, updateDataBuffer)
	if !updateDataBuffer || err != nil {
		return
	}
	for i := 0; i < d.buf.NumberOfChannels(); i++ {
		ch := d.target.buf.AccessChannel(i)
		d.buf.SwapChannel(i, &ch)
	}
	d.SetVersion(d.target.Version())
	d.SetValidity(d.target.Validity())
}

func (d *Decorator[T]) doPreWrite(ctx context.Context, typ Type, v vnum.Number) error {
	for i := 0; i < d.buf.NumberOfChannels(); i++ {
		d.target.buf.SetChannel(i, d.buf.AccessChannel(i))
	}
	d.target.PreWrite(ctx, typ, v)
	return nil
}

func (d *Decorator[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	lost := d.target.WriteTransfer(ctx, v)
	return lost, d.target.activeException
}

func (d *Decorator[T]) doWriteTransferDestructively(ctx context.Context, v vnum.Number) (bool, error) {
	lost := d.target.WriteTransferDestructively(ctx, v)
	return lost, d.target.activeException
}

func (d *Decorator[T]) doPostWrite(typ Type, v vnum.Number) {
	d.target.PostWrite(typ, v)
}

func (d *Decorator[T]) isReadable() bool  { return d.target.IsReadable() }
func (d *Decorator[T]) isWriteable() bool { return d.target.IsWriteable() }

// TransferTarget delegates down to the wrapped accessor, so nested
// decorators over the same underlying target all report one identity.
func (d *Decorator[T]) TransferTarget() ElementID { return d.target.TransferTarget() }

// CopyDecorator is a read-only decorator that copies the target's buffer
// into its own rather than swapping backing slices, so multiple copy
// decorators over one target never alias each other's memory (spec.md
// §4.3, ChimeraTK's CopyRegisterDecorator).
type CopyDecorator[T any] struct {
	Decorator[T]
}

func (c *CopyDecorator[T]) doPostRead(typ Type, updateDataBuffer bool) {
	err := c.target.PostRead(typ, updateDataBuffer)
	if !updateDataBuffer || err != nil {
		return
	}
	for i := 0; i < c.buf.NumberOfChannels(); i++ {
		c.buf.SetChannel(i, c.target.buf.AccessChannel(i))
	}
	c.SetVersion(c.target.Version())
	c.SetValidity(c.target.Validity())
}

func (c *CopyDecorator[T]) isWriteable() bool { return false }

func (c *CopyDecorator[T]) doPreWrite(ctx context.Context, typ Type, v vnum.Number) error {
	return regerr.Logic("write", "accessor %q is a read-only copy decorator", c.Name())
}

func (c *CopyDecorator[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	return false, regerr.Logic("write", "accessor %q is a read-only copy decorator", c.Name())
}

// PushDecorator promotes a poll-type (synchronous) target into a push-type
// accessor: it owns its own queue of depth 3, fed only by explicit calls to
// Trigger, and never touches the target's hardware access itself (spec.md
// §9's suggestion to let a decorator simulate push-type behavior atop a
// polled register for testing and for composed backends like subdevice's
// status-polling accessors).
type PushDecorator[T any] struct {
	NDRegisterAccessor[T]
	target *NDRegisterAccessor[T]
}

// NewPushDecorator wraps target, which must not itself already be
// wait_for_new_data.
func NewPushDecorator[T any](target *NDRegisterAccessor[T], name string) (*PushDecorator[T], error) {
	if target.AccessModeFlags().Has(accessmode.WaitForNewData) {
		return nil, regerr.Logic("newPushDecorator", "target %q is already push-type", target.Name())
	}
	flags := target.AccessModeFlags()
	flags = flags.Add(accessmode.WaitForNewData)
	p := &PushDecorator[T]{target: target}
	p.InitND(p, name, flags, target.buf.NumberOfChannels(), target.buf.NumberOfSamples())
	return p, nil
}

// Trigger reads the target synchronously and pushes the result into the
// decorator's own queue, driving one wakeup for any blocked Read.
func (p *PushDecorator[T]) Trigger(ctx context.Context) error {
	if err := p.target.Read(ctx); err != nil {
		p.Base.ReadQueue().PushException(err)
		return err
	}
	buf := p.target.buf.Clone()
	p.Base.ReadQueue().PushValue(buf, p.target.Version(), p.target.Validity())
	return nil
}

func (p *PushDecorator[T]) isReadable() bool  { return true }
func (p *PushDecorator[T]) isWriteable() bool { return false }

// TransferTarget delegates to the polled target PushDecorator promotes;
// its own reads never touch that target directly (only Trigger does),
// but the identity still lets a Group recognize it shares a resource
// with a plain accessor built against the same target.
func (p *PushDecorator[T]) TransferTarget() ElementID { return p.target.TransferTarget() }

func (p *PushDecorator[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	return false, regerr.Logic("write", "accessor %q is a read-only push decorator", p.Name())
}

func (p *PushDecorator[T]) doPreWrite(ctx context.Context, typ Type, v vnum.Number) error {
	return regerr.Logic("write", "accessor %q is a read-only push decorator", p.Name())
}
