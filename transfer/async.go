package transfer

import (
	"context"
	"sync"

	"regaccess-go/accessmode"
	"regaccess-go/regerr"
	"regaccess-go/vnum"
)

// AsyncAccessor is a wait_for_new_data accessor fed entirely by a producer
// (an interrupt dispatcher or a subdevice poller) rather than by its own
// doReadTransferSynchronously, ported from AsyncNDRegisterAccessor.h.
// It is inactive until Activate is called, at which point exactly one
// initial value (or exception) is delivered before any producer-pushed
// update, matching the source's "deliver the current value first after
// activation" contract (spec.md §4.4).
type AsyncAccessor[T any] struct {
	NDRegisterAccessor[T]

	mu       sync.Mutex
	active   bool
	initial  func(ctx context.Context) (Buffer[T], vnum.Number, regerr.DataValidity, error)
}

// NewAsyncAccessor constructs an inactive async accessor. initial supplies
// the value delivered exactly once on Activate; it is typically a snapshot
// read of the backend's current register contents.
func NewAsyncAccessor[T any](name string, channels, samples int, initial func(ctx context.Context) (Buffer[T], vnum.Number, regerr.DataValidity, error)) *AsyncAccessor[T] {
	a := &AsyncAccessor[T]{initial: initial}
	a.InitND(a, name, accessmode.New(accessmode.WaitForNewData), channels, samples)
	return a
}

func (a *AsyncAccessor[T]) isReadable() bool  { return true }
func (a *AsyncAccessor[T]) isWriteable() bool { return false }

// Activate enables delivery and pushes the initial value (or an exception
// if obtaining it failed). Calling Activate while already active is a
// no-op, matching the source's AsyncAccessorManager::activate idempotence
// within one subscription.
func (a *AsyncAccessor[T]) Activate(ctx context.Context) {
	a.mu.Lock()
	if a.active {
		a.mu.Unlock()
		return
	}
	a.active = true
	a.mu.Unlock()

	if a.initial == nil {
		return
	}
	buf, v, validity, err := a.initial(ctx)
	if err != nil {
		a.Base.ReadQueue().PushException(err)
		return
	}
	a.Base.ReadQueue().PushValue(buf, v, validity)
}

// Deactivate stops delivery; the producer may keep calling Send* but they
// become no-ops until the next Activate (spec.md §4.4).
func (a *AsyncAccessor[T]) Deactivate() {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()
}

// IsActive reports whether Activate has run since the last Deactivate.
func (a *AsyncAccessor[T]) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Send delivers one value from the producer side, destructively
// overwriting the queue on overflow (spec.md §8 property 12). A no-op
// while inactive.
func (a *AsyncAccessor[T]) Send(buf Buffer[T], v vnum.Number, validity regerr.DataValidity) {
	if !a.IsActive() {
		return
	}
	a.Base.ReadQueue().PushValue(buf, v, validity)
}

// SendException delivers one exception from the producer side, surfacing
// on the next Read/ReadNonBlocking. A no-op while inactive.
func (a *AsyncAccessor[T]) SendException(err error) {
	if !a.IsActive() {
		return
	}
	a.Base.ReadQueue().PushException(err)
}
