package transfer

import (
	"context"

	"regaccess-go/regerr"
	"regaccess-go/vnum"
)

// itemKind tags what a queued element carries (spec.md §9 "exception
// carriage through the queue": model the queue element as a sum type
// rather than a side channel).
type itemKind int

const (
	itemValue itemKind = iota
	itemException
	itemDiscard
)

// queueItem is one element of an AsyncQueue: either a delivered value with
// its version and validity, an exception to be re-raised to the
// application, or an internal discard marker meaning "no update, keep
// waiting" (spec.md §4.4, never visible outside the read loop).
type queueItem[T any] struct {
	kind     itemKind
	buf      Buffer[T]
	version  vnum.Number
	validity regerr.DataValidity
	err      error
}

// AsyncQueue is the typed SPSC queue behind every wait_for_new_data
// accessor: single producer (an interrupt dispatcher or explicit trigger),
// single consumer (the application thread calling Read). The reference
// depth is 3, matching the source's AsyncNDRegisterAccessor::_queueSize.
type AsyncQueue[T any] struct {
	ch chan queueItem[T]
}

// NewAsyncQueue allocates a queue with the given depth.
func NewAsyncQueue[T any](depth int) *AsyncQueue[T] {
	if depth <= 0 {
		depth = 3
	}
	return &AsyncQueue[T]{ch: make(chan queueItem[T], depth)}
}

// PushValue delivers a value destructively: if the queue is full, the
// oldest queued item is dropped first. This is the documented data-loss
// point from spec.md §5/§8 property 12 — queue overrun never blocks the
// producer.
func (q *AsyncQueue[T]) PushValue(buf Buffer[T], v vnum.Number, validity regerr.DataValidity) {
	q.pushOverwrite(queueItem[T]{kind: itemValue, buf: buf, version: v, validity: validity})
}

// PushException delivers one exception destructively, used both by
// backend.Backend.SetException fan-out and by Interrupt().
func (q *AsyncQueue[T]) PushException(err error) {
	q.pushOverwrite(queueItem[T]{kind: itemException, err: err})
}

// PushDiscard delivers a discard-value marker: "no new value here, keep
// waiting". Used by dispatchers that know a value did not change and want
// consumers to stay blocked without seeing a spurious wakeup externally.
func (q *AsyncQueue[T]) PushDiscard() {
	q.pushOverwrite(queueItem[T]{kind: itemDiscard})
}

func (q *AsyncQueue[T]) pushOverwrite(item queueItem[T]) {
	for {
		select {
		case q.ch <- item:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// popWait blocks until an item is available or ctx is done, transparently
// skipping discard markers (spec.md §4.4's discard-value protocol).
func (q *AsyncQueue[T]) popWait(ctx context.Context) (queueItem[T], error) {
	for {
		select {
		case item := <-q.ch:
			if item.kind == itemDiscard {
				continue
			}
			return item, nil
		case <-ctx.Done():
			return queueItem[T]{}, regerr.Interrupted("readTransfer")
		}
	}
}

// popNonWait returns immediately: ok is false if nothing was queued,
// skipping discard markers invisibly.
func (q *AsyncQueue[T]) popNonWait() (queueItem[T], bool) {
	for {
		select {
		case item := <-q.ch:
			if item.kind == itemDiscard {
				continue
			}
			return item, true
		default:
			return queueItem[T]{}, false
		}
	}
}
