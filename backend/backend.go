// Package backend defines the Backend surface every accessor reports
// runtime errors to (spec.md §7): fault state is one-shot until an explicit
// reopen, and while faulty every read/write throws runtime-error.
package backend

import (
	"sync"
	"sync/atomic"

	"regaccess-go/regerr"

	"go.uber.org/zap"
)

// Backend is the minimal surface transfer elements need from their owning
// device: fault-state reporting. Concrete
// backends (dummy, subdevice) embed FaultState to get this for
// free, the way the teacher's services share one errcode taxonomy instead
// of reimplementing error classification per backend.
type Backend interface {
	// SetException transitions the backend to error state and delivers one
	// notification to every active async accessor. Idempotent while already
	// faulty.
	SetException(msg string)
	// IsFunctional reports whether the backend is open and not faulty.
	IsFunctional() bool
}

// FaultState implements the one-shot fault/reopen bookkeeping shared by
// every backend: an atomic flag plus a small-lock message, per spec.md §5's
// "Shared-resource policy" for backend exception state.
type FaultState struct {
	mu      sync.Mutex
	faulty  atomic.Bool
	message string
	opened  atomic.Bool
	log     *zap.Logger

	// onException is invoked exactly once per fault transition (not per
	// repeated SetException call) so owners can fan exceptions out to async
	// accessors.
	onException func(msg string)
}

// NewFaultState constructs a FaultState. log may be nil (defaults to a
// no-op logger, matching the teacher's pattern of injected, optional
// collaborators rather than a global logger).
func NewFaultState(log *zap.Logger, onException func(msg string)) *FaultState {
	if log == nil {
		log = zap.NewNop()
	}
	return &FaultState{log: log, onException: onException}
}

// Open marks the backend open and clears any prior fault.
func (f *FaultState) Open() {
	f.mu.Lock()
	f.faulty.Store(false)
	f.message = ""
	f.mu.Unlock()
	f.opened.Store(true)
	f.log.Debug("backend opened")
}

// Close marks the backend not open. Faults persist until Open is called
// again, matching "recovery is an explicit open()" (spec.md §7).
func (f *FaultState) Close() { f.opened.Store(false) }

// SetException transitions to faulty, idempotently: a second call while
// already faulty does not re-invoke onException, matching spec.md §7's
// "idempotent while the backend is faulty".
func (f *FaultState) SetException(msg string) {
	f.mu.Lock()
	already := f.faulty.Load()
	f.faulty.Store(true)
	f.message = msg
	f.mu.Unlock()
	if already {
		return
	}
	f.log.Warn("backend fault", zap.String("message", msg))
	if f.onException != nil {
		f.onException(msg)
	}
}

// IsFunctional reports open && !faulty.
func (f *FaultState) IsFunctional() bool {
	return f.opened.Load() && !f.faulty.Load()
}

// CheckFunctional returns a runtime-error carrying the fault message if the
// backend is not currently functional, nil otherwise.
func (f *FaultState) CheckFunctional(op string) error {
	if f.IsFunctional() {
		return nil
	}
	f.mu.Lock()
	msg := f.message
	f.mu.Unlock()
	if msg == "" {
		msg = "device not opened"
	}
	return regerr.Runtime(op, "%s", msg)
}
