package main

import (
	"context"
	"fmt"

	"regaccess-go/accessmode"
	"regaccess-go/dummy"
	"regaccess-go/vnum"
)

// dummyTarget adapts a dummy.Backend into a subdevice.Target, letting the
// selftest harness wire a subdevice passthrough directly on top of an
// in-memory backend instead of real hardware. Every register it knows
// about is read/written whole through an ordinary dummy accessor; offset
// and count address a window within that whole.
type dummyTarget struct {
	be *dummy.Backend
}

func newDummyTarget(be *dummy.Backend) *dummyTarget {
	return &dummyTarget{be: be}
}

func (d *dummyTarget) registerSize(register string) (int, error) {
	switch register {
	case "AREA":
		return 16, nil
	case "ADDR", "DATA", "STATUS", "RREQ", "RDATA", "CS":
		return 1, nil
	default:
		return 0, fmt.Errorf("dummyTarget: unknown register %q", register)
	}
}

func (d *dummyTarget) ReadWords(ctx context.Context, register string, offset, count int) ([]uint32, error) {
	n, err := d.registerSize(register)
	if err != nil {
		return nil, err
	}
	acc, err := dummy.GetAccessor[uint32](d.be, register, 1, n, accessmode.Set{})
	if err != nil {
		return nil, err
	}
	if err := acc.Read(ctx); err != nil {
		return nil, err
	}
	full := acc.AccessChannel(0)
	if offset < 0 || offset+count > len(full) {
		return nil, fmt.Errorf("dummyTarget: %s read out of range: offset=%d count=%d size=%d", register, offset, count, len(full))
	}
	out := make([]uint32, count)
	copy(out, full[offset:offset+count])
	return out, nil
}

func (d *dummyTarget) WriteWords(ctx context.Context, register string, offset int, words []uint32) error {
	n, err := d.registerSize(register)
	if err != nil {
		return err
	}
	acc, err := dummy.GetAccessor[uint32](d.be, register, 1, n, accessmode.Set{})
	if err != nil {
		return err
	}
	if err := acc.Read(ctx); err != nil {
		return err
	}
	full := append([]uint32(nil), acc.AccessChannel(0)...)
	if offset < 0 || offset+len(words) > len(full) {
		return fmt.Errorf("dummyTarget: %s write out of range: offset=%d len=%d size=%d", register, offset, len(words), len(full))
	}
	copy(full[offset:], words)
	acc.SetChannel(0, full)
	_, err = acc.Write(ctx, vnum.New())
	return err
}
