// Package dummy implements an in-memory backend equivalent to the
// original's ExceptionDummy: an entirely software-backed register map used
// to exercise the transfer protocol and conformance suite without real
// hardware, plus three testing knobs (ThrowOnOpen/Read/Write) and write
// order/count bookkeeping (spec.md §4.6).
package dummy

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"regaccess-go/backend"
	"regaccess-go/catalogue"
	"regaccess-go/dispatch"
	"regaccess-go/regerr"
	"regaccess-go/regpath"
	"regaccess-go/vnum"
)

// Numeric is the set of cooked user types the dummy's canonical float64
// storage can convert to and from without loss of the scale the
// conformance suite exercises.
type Numeric interface {
	~int32 | ~int64 | ~uint32 | ~float32 | ~float64
}

// register is the backend's canonical storage for one path: channels of
// float64, independent of whatever UserType accessors read or write it as.
type register struct {
	mu       sync.Mutex
	data     [][]float64
	info     *catalogue.RegisterInfo
	writable bool

	writeOrder int64
	writeCount int64
	readCount  int64
}

// Backend is the dummy device: open/close lifecycle via backend.FaultState,
// a register map loaded from a catalogue, push-type pseudo-registers
// recognized by a "PUSH_READ" path suffix or a DUMMY_INTERRUPT_<n>_<n>
// glob, and atomic throw-on-demand switches for conformance testing.
type Backend struct {
	*backend.FaultState

	mu   sync.Mutex
	cat  *catalogue.Catalogue
	regs map[string]*register

	dispatcher *dispatch.Manager

	interruptGlob glob.Glob

	ThrowOnOpen  atomic.Bool
	ThrowOnRead  atomic.Bool
	ThrowOnWrite atomic.Bool

	hadException atomic.Bool

	writeOrderCounter atomic.Int64

	pushMu   sync.Mutex
	pushDecs map[string][]pushHandle

	log *zap.Logger
}

// pushHandle lets the backend activate/deactivate/trigger a push decorator
// without knowing its UserType, the same role ExceptionDummyPushDecoratorBase
// plays in the source.
type pushHandle interface {
	activate(ctx context.Context)
	deactivate()
	trigger(ctx context.Context) error
}

// New constructs a dummy backend from a register catalogue. log may be nil.
func New(cat *catalogue.Catalogue, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backend{
		cat:        cat,
		regs:       make(map[string]*register),
		dispatcher: dispatch.NewManager(),
		pushDecs:   make(map[string][]pushHandle),
		log:        log,
	}
	b.FaultState = backend.NewFaultState(log, b.fanOutException)
	b.interruptGlob = glob.MustCompile("DUMMY_INTERRUPT_*_*", '/')
	for name, info := range cat.Registers {
		samples := info.Samples
		if samples <= 0 {
			samples = 1
		}
		channels := info.Channels
		if channels <= 0 {
			channels = 1
		}
		data := make([][]float64, channels)
		for i := range data {
			data[i] = make([]float64, samples)
		}
		b.regs[name] = &register{data: data, info: info, writable: info.Writeable}
	}
	return b
}

// Open clears fault state; Open throws when ThrowOnOpen is set, matching
// the source's "DummyException: open throws by request".
func (b *Backend) Open() error {
	if b.ThrowOnOpen.Load() {
		b.hadException.Store(true)
		return regerr.Runtime("open", "DummyException: open throws by request")
	}
	b.FaultState.Open()
	b.hadException.Store(false)
	return nil
}

// Close marks the backend not open and propagates a fault to every active
// async accessor, mirroring closeImpl's call to setException.
func (b *Backend) Close() {
	b.SetException("device closed")
	b.FaultState.Close()
}

// IsFunctional additionally accounts for thereHaveBeenExceptions, which the
// source tracks separately from the externally injected fault flag.
func (b *Backend) IsFunctional() bool {
	return b.FaultState.IsFunctional() && !b.hadException.Load() && !b.ThrowOnOpen.Load()
}

// CheckFunctional shadows FaultState's version so it also observes
// thereHaveBeenExceptions, matching Backend.IsFunctional above.
func (b *Backend) CheckFunctional(op string) error {
	if b.IsFunctional() {
		return nil
	}
	return regerr.Runtime(op, "device not opened or in error state")
}

func (b *Backend) fanOutException(msg string) {
	b.pushMu.Lock()
	handles := make([]pushHandle, 0)
	for _, list := range b.pushDecs {
		handles = append(handles, list...)
	}
	b.pushMu.Unlock()
	for _, h := range handles {
		h.deactivate()
	}
}

// ActivateAsyncRead delivers an initial value to every registered push
// decorator, matching ExceptionDummy::activateAsyncRead.
func (b *Backend) ActivateAsyncRead(ctx context.Context) {
	b.pushMu.Lock()
	handles := make([]pushHandle, 0)
	for _, list := range b.pushDecs {
		handles = append(handles, list...)
	}
	b.pushMu.Unlock()
	for _, h := range handles {
		h.activate(ctx)
	}
}

// Dispatcher exposes the backend's interrupt manager, the same one that
// writes to /DUMMY_INTERRUPT_<c>_<n> pseudo-registers fire.
func (b *Backend) Dispatcher() *dispatch.Manager { return b.dispatcher }

// TriggerPush delivers a fresh value to every PUSH_READ accessor open
// against path, re-reading the underlying register and pushing the
// result into the accessor's queue, matching
// ExceptionDummyBackend::triggerPush (spec.md §2): write the new value
// through an ordinary accessor first, then call TriggerPush(path) so a
// subscriber sees it without waiting for the one-shot ActivateAsyncRead.
// path must be the same string passed to GetAccessor to obtain the
// PUSH_READ accessor (e.g. "SCALAR.PUSH_READ").
func (b *Backend) TriggerPush(ctx context.Context, path string) error {
	b.pushMu.Lock()
	handles := append([]pushHandle(nil), b.pushDecs[path]...)
	b.pushMu.Unlock()
	if len(handles) == 0 {
		return regerr.Logic("triggerPush", "no push-type accessor registered for %q", path)
	}
	for _, h := range handles {
		if err := h.trigger(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IsInterruptPseudoRegister reports whether path names a synthetic
// interrupt-trigger register rather than a real one, per spec.md §4.6.
func (b *Backend) IsInterruptPseudoRegister(path string) bool {
	base := regpath.Parse(path).Last()
	return b.interruptGlob.Match(base)
}

// dispatchTo fires controller/interrupt on the backend's dispatcher;
// satisfies the hasDispatch interface interruptTrigger accessors use.
func (b *Backend) dispatchTo(ctx context.Context, controller, interrupt string) {
	b.dispatcher.Dispatch(ctx, dispatch.ID{Controller: controller, Interrupt: interrupt})
}

// parseInterruptPath extracts the controller and interrupt numbers from a
// "/DUMMY_INTERRUPT_<controller>_<interrupt>" pseudo-register path.
func parseInterruptPath(path string) (controller, interrupt string, err error) {
	base := regpath.Parse(path).Last()
	parts := strings.Split(base, "_")
	if len(parts) != 4 || parts[0] != "DUMMY" || parts[1] != "INTERRUPT" {
		return "", "", regerr.Logic("parseInterruptPath", "malformed interrupt pseudo-register %q", path)
	}
	return parts[2], parts[3], nil
}

func (b *Backend) lookup(path string) (*register, error) {
	b.mu.Lock()
	r, ok := b.regs[trimPushSuffix(path)]
	b.mu.Unlock()
	if !ok {
		return nil, regerr.Logic("lookup", "unknown register %q", path)
	}
	return r, nil
}

func trimPushSuffix(path string) string {
	if rest, ok := strings.CutSuffix(path, regpath.AltSeparator+"PUSH_READ"); ok {
		return rest
	}
	if rest, ok := strings.CutSuffix(path, regpath.AltSeparator+"DUMMY_WRITEABLE"); ok {
		return rest
	}
	return path
}

func isPushReadPath(path string) bool {
	return strings.HasSuffix(path, regpath.AltSeparator+"PUSH_READ")
}

func isDummyWriteablePath(path string) bool {
	return strings.HasSuffix(path, regpath.AltSeparator+"DUMMY_WRITEABLE")
}

// readRaw/writeRaw are the register-level primitives Accessor
// delegates to; they apply the throw-on-demand switches and write-order
// bookkeeping the source implements in DummyBackend::read/write.
func (b *Backend) readRaw(r *register) ([][]float64, vnum.Number, error) {
	if b.ThrowOnRead.Load() {
		b.hadException.Store(true)
		return nil, vnum.Number{}, regerr.Runtime("read", "DummyException: read throws by request")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readCount++
	out := make([][]float64, len(r.data))
	for i := range r.data {
		out[i] = append([]float64(nil), r.data[i]...)
	}
	return out, vnum.New(), nil
}

func (b *Backend) writeRaw(r *register, data [][]float64, bookkeeping bool) error {
	if b.ThrowOnWrite.Load() {
		b.hadException.Store(true)
		return regerr.Runtime("write", "DummyException: write throws by request")
	}
	r.mu.Lock()
	for i := range data {
		copy(r.data[i], data[i])
	}
	if bookkeeping {
		r.writeCount++
		order := b.writeOrderCounter.Add(1)
		if order > r.writeOrder {
			r.writeOrder = order
		}
	}
	r.mu.Unlock()
	return nil
}

// WriteOrder returns the order number of the most recent write to path,
// letting tests determine which of two registers was written last.
func (b *Backend) WriteOrder(path string) (int64, error) {
	r, err := b.lookup(path)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeOrder, nil
}

// WriteCount returns the number of writes path has received since backend
// construction.
func (b *Backend) WriteCount(path string) (int64, error) {
	r, err := b.lookup(path)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeCount, nil
}

// ReadCount returns the number of real hardware reads path has received
// since backend construction, letting tests confirm a transfer-group
// merge actually shared one underlying transfer instead of repeating it.
func (b *Backend) ReadCount(path string) (int64, error) {
	r, err := b.lookup(path)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readCount, nil
}
