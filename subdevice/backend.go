package subdevice

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"regaccess-go/backend"
	"regaccess-go/regerr"
)

// Target is the minimal surface a subdevice needs from the device it is
// passed through: word-addressed read/write of the area, address, data,
// status, read-request trigger, read-data and chip-select registers. A
// caller wires this to whatever accessors the target device's own backend
// exposes (typically one transfer.Accessor[uint32] per named register).
type Target interface {
	ReadWords(ctx context.Context, register string, offset, count int) ([]uint32, error)
	WriteWords(ctx context.Context, register string, offset int, words []uint32) error
}

// Backend is the subdevice passthrough device. All transactions are
// serialized through a single mutex regardless of how many accessors are
// in use, matching SubdeviceBackend's single std::mutex covering
// area/handshake access (spec.md §4.5, §5).
type Backend struct {
	*backend.FaultState

	cfg    Config
	target Target
	mu     sync.Mutex
}

// New constructs a subdevice backend over an already-open target.
func New(cfg Config, target Target) *Backend {
	b := &Backend{cfg: cfg, target: target}
	b.FaultState = backend.NewFaultState(nil, nil)
	return b
}

// Config returns the backend's resolved configuration, read by accessor.go
// to determine word layout and read/write-ability.
func (b *Backend) Config() Config { return b.cfg }

// ReadArea reads count words starting at wordOffset from the passthrough
// area (Area and AreaHandshake modes only; the handshake modes are
// single-word and use ReadWord/WriteWord instead).
func (b *Backend) ReadArea(ctx context.Context, wordOffset, count int) ([]uint32, error) {
	if err := b.CheckFunctional("read"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target.ReadWords(ctx, b.cfg.TargetArea, wordOffset, count)
}

// WriteArea writes words at wordOffset into the passthrough area, waiting
// for the status handshake first when the mode requires it. spec.md §9
// records the open question on whether the areaHandshake write path should
// transfer one word or _numberOfWords; this preserves the latter, matching
// the observable behavior of the source until a maintainer clarifies.
func (b *Backend) WriteArea(ctx context.Context, wordOffset int, words []uint32) error {
	if err := b.CheckFunctional("write"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.Mode == AreaHandshake {
		if err := b.awaitStatusLocked(ctx, b.cfg.TargetStatus); err != nil {
			return err
		}
	}
	return b.target.WriteWords(ctx, b.cfg.TargetArea, wordOffset, words)
}

// ReadWord performs one word read through the sixRegisters handshake,
// following the per-word state machine of spec.md §4.5: write the chip
// select, write the address, wait the configured delay, write the
// read-request trigger, poll status until zero, then read the read-data
// register. Every other mode fails with a logic-error, since
// twoRegisters/threeRegisters are write-only per spec.md §4.5.
func (b *Backend) ReadWord(ctx context.Context, address uint32) (uint32, error) {
	if b.cfg.Mode != SixRegisters {
		return 0, regerr.Logic("subdevice.ReadWord", "mode %q does not support read", b.cfg.Mode)
	}
	if err := b.CheckFunctional("read"); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.selectChipLocked(ctx); err != nil {
		return 0, err
	}
	if err := b.target.WriteWords(ctx, b.cfg.TargetAddress, 0, []uint32{address}); err != nil {
		return 0, err
	}
	if b.cfg.AddressToDataDelay > 0 {
		time.Sleep(b.cfg.AddressToDataDelay)
	}
	// TRIGGER_READ: the read-request register is void-typed — any write
	// initiates the device's internal fetch of the addressed word.
	if err := b.target.WriteWords(ctx, b.cfg.TargetReadRequest, 0, []uint32{0}); err != nil {
		return 0, err
	}
	if err := b.awaitStatusLocked(ctx, b.cfg.TargetStatus); err != nil {
		return 0, err
	}
	words, err := b.target.ReadWords(ctx, b.cfg.TargetReadData, 0, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// WriteWord performs one word write through the address/data handshake,
// used by twoRegisters, threeRegisters and sixRegisters (spec.md §4.5).
func (b *Backend) WriteWord(ctx context.Context, address, value uint32) error {
	if err := b.CheckFunctional("write"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.Mode == SixRegisters {
		if err := b.selectChipLocked(ctx); err != nil {
			return err
		}
	}
	if err := b.target.WriteWords(ctx, b.cfg.TargetAddress, 0, []uint32{address}); err != nil {
		return err
	}
	switch b.cfg.Mode {
	case TwoRegisters:
		time.Sleep(b.cfg.SleepTime)
	case ThreeRegisters, SixRegisters:
		if b.cfg.AddressToDataDelay > 0 {
			time.Sleep(b.cfg.AddressToDataDelay)
		}
	}
	if err := b.target.WriteWords(ctx, b.cfg.TargetData, 0, []uint32{value}); err != nil {
		return err
	}
	if b.cfg.Mode == ThreeRegisters || b.cfg.Mode == SixRegisters {
		return b.awaitStatusLocked(ctx, b.cfg.TargetStatus)
	}
	return nil
}

// selectChipLocked writes ChipIndex to the chip-select register, done once
// per transaction ahead of the address write (spec.md §4.5's SELECT_CHIP?
// state, sixRegisters only). Caller must hold mu.
func (b *Backend) selectChipLocked(ctx context.Context) error {
	return b.target.WriteWords(ctx, b.cfg.TargetChipSelect, 0, []uint32{uint32(b.cfg.ChipIndex)})
}

// awaitStatusLocked polls statusReg until it reads 0, failing with a
// runtime-error naming the register if Timeout elapses, matching the
// source's "throw runtime_error if status register stuck at 1" (spec.md
// §4.5, scenario S5). Caller must hold mu.
func (b *Backend) awaitStatusLocked(ctx context.Context, statusReg string) error {
	deadline := time.Now().Add(b.cfg.Timeout)
	ticker := backoff.NewTicker(&backoff.ConstantBackOff{Interval: b.cfg.SleepTime})
	defer ticker.Stop()

	for {
		words, err := b.target.ReadWords(ctx, statusReg, 0, 1)
		if err != nil {
			return err
		}
		if words[0] == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return regerr.Runtime("subdevice.awaitStatus", "status register %q stuck busy after %s", statusReg, b.cfg.Timeout)
		}
		select {
		case <-ctx.Done():
			return regerr.Interrupted("subdevice.awaitStatus")
		case _, ok := <-ticker.C:
			if !ok {
				return regerr.Runtime("subdevice.awaitStatus", "status register %q stuck busy after %s", statusReg, b.cfg.Timeout)
			}
		}
	}
}
