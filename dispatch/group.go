package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"regaccess-go/transfer"
)

// Element is the minimal surface a Group needs from a member accessor:
// the three staged-protocol calls Base already exposes publicly, plus an
// identity for the physical resource it ultimately reads, so Group can
// tell when two members would otherwise repeat the same transfer.
// transfer.NDRegisterAccessor[T] and every decorator built on it satisfy
// this for any T without Group itself needing to be generic.
type Element interface {
	PreRead(ctx context.Context, typ transfer.Type)
	ReadTransfer(ctx context.Context)
	PostRead(typ transfer.Type, updateDataBuffer bool) error
	TransferTarget() transfer.ElementID
}

// Group batches a read across possibly many accessors the way
// TransferElement::TransferGroup does (spec.md §9 "transfer-group
// merging"): every member's preRead runs, then the underlying transfer
// runs exactly once per distinct physical resource even when several
// members decorate the same one, then every member's postRead commits
// the shared result into its own buffer.
type Group struct {
	members []Element
}

// NewGroup builds an empty group.
func NewGroup() *Group { return &Group{} }

// AddRead registers an accessor to be read as part of the next Execute.
func (g *Group) AddRead(e Element) { g.members = append(g.members, e) }

// byTarget partitions members into the order their distinct
// TransferTarget identities first appeared, keeping every member that
// shares one target together.
func (g *Group) byTarget() (order []transfer.ElementID, groups map[transfer.ElementID][]Element) {
	groups = make(map[transfer.ElementID][]Element, len(g.members))
	for _, m := range g.members {
		key := m.TransferTarget()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}
	return order, groups
}

// Execute runs the batched read. preRead is invoked for every member —
// each needs its own call to arm its own postRead — but concurrency is
// scoped to distinct physical targets: members sharing one target run
// their (idempotent, guarded) preRead sequentially in one goroutine, so
// no two goroutines ever touch the same underlying accessor's state at
// once, while unrelated targets still preRead in parallel (spec.md §4.1
// guarantees preRead performs no hardware I/O, so this is safe). The
// transfer itself then runs exactly once per target — picking one
// member as the representative — before postRead commits the shared
// result into every member's own buffer, including those whose
// transfer was skipped because a sibling already performed it.
func (g *Group) Execute(ctx context.Context) error {
	order, groups := g.byTarget()

	var wg sync.WaitGroup
	for _, key := range order {
		members := groups[key]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, m := range members {
				m.PreRead(ctx, transfer.Read)
			}
		}()
	}
	wg.Wait()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, key := range order {
		rep := groups[key][0]
		eg.Go(func() error {
			rep.ReadTransfer(egCtx)
			return nil
		})
	}
	_ = eg.Wait()

	var firstErr error
	for _, m := range g.members {
		if err := m.PostRead(transfer.Read, true); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
