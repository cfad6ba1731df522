package subdevice

import (
	"context"

	"regaccess-go/accessmode"
	"regaccess-go/catalogue"
	"regaccess-go/regerr"
	"regaccess-go/transfer"
	"regaccess-go/vnum"
)

// Word is the raw element type every subdevice register transfers as: the
// target device's word-addressed registers are uint32 per spec.md §4.5's
// numeric-addressed backend assumption, matching raw mode's requirement
// that UserType equal the backend's raw element type (spec.md §3).
type Word interface{ ~uint32 }

// areaAccessor addresses a contiguous window inside the passthrough area
// (Area / AreaHandshake modes), byte offset within the subdevice equal to
// byte offset within the target region (spec.md §4.5).
type areaAccessor[T Word] struct {
	transfer.NDRegisterAccessor[T]
	be         *Backend
	wordOffset int
}

// handshakeAccessor addresses one subdevice register through the
// address+data (+status, +chip-select, +read-request) handshake
// (TwoRegisters / ThreeRegisters / SixRegisters). Each channel×sample
// position is one word, transferred at address+i in turn.
type handshakeAccessor[T Word] struct {
	transfer.NDRegisterAccessor[T]
	be      *Backend
	address uint32
	words   int
}

// GetAccessor builds the accessor for path (looked up in the subdevice's
// own catalogue) appropriate to b's configured mode, the state-machine
// family named in spec.md §4.5. The catalogue's byte offset gives the
// register's position; for area modes that is a byte offset into the
// target area's word space, for handshake modes it is the register's own
// base address.
func GetAccessor[T Word](b *Backend, cat *catalogue.Catalogue, path string, flags accessmode.Set) (transfer.Accessor[T], error) {
	if err := flags.CheckKnown(accessmode.New(accessmode.Raw)); err != nil {
		return nil, err
	}
	info, ok := cat.Lookup(path)
	if !ok {
		return nil, regerr.Logic("subdevice.GetAccessor", "unknown register %q", path)
	}
	channels := info.Channels
	if channels <= 0 {
		channels = 1
	}
	samples := info.Samples
	if samples <= 0 {
		samples = 1
	}
	const wordSize = 4
	wordOffset := info.ByteOffset / wordSize

	cfg := b.Config()
	switch cfg.Mode {
	case Area, AreaHandshake:
		a := &areaAccessor[T]{be: b, wordOffset: wordOffset}
		a.InitND(a, path, flags, channels, samples)
		return a, nil
	case TwoRegisters, ThreeRegisters, SixRegisters:
		h := &handshakeAccessor[T]{be: b, address: uint32(wordOffset), words: channels * samples}
		h.InitND(h, path, flags, channels, samples)
		return h, nil
	default:
		return nil, regerr.Logic("subdevice.GetAccessor", "unsupported mode %q", cfg.Mode)
	}
}

func (a *areaAccessor[T]) isReadable() bool  { return true }
func (a *areaAccessor[T]) isWriteable() bool { return true }

func (a *areaAccessor[T]) doReadTransferSynchronously(ctx context.Context) error {
	words, err := a.be.ReadArea(ctx, a.wordOffset, a.Buf().NumberOfChannels()*a.Buf().NumberOfSamples())
	if err != nil {
		return err
	}
	a.scatter(words)
	a.SetVersion(vnum.New())
	return nil
}

func (a *areaAccessor[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	return false, a.be.WriteArea(ctx, a.wordOffset, a.gather())
}

func (a *areaAccessor[T]) doWriteTransferDestructively(ctx context.Context, v vnum.Number) (bool, error) {
	return a.doWriteTransfer(ctx, v)
}

func (a *areaAccessor[T]) doPostRead(typ transfer.Type, updateDataBuffer bool) {}

func (a *areaAccessor[T]) scatter(words []uint32) {
	channels := a.Buf().NumberOfChannels()
	samples := a.Buf().NumberOfSamples()
	idx := 0
	for c := 0; c < channels; c++ {
		out := a.Buf().AccessChannel(c)
		for s := 0; s < samples && idx < len(words); s++ {
			out[s] = T(words[idx])
			idx++
		}
	}
}

func (a *areaAccessor[T]) gather() []uint32 {
	channels := a.Buf().NumberOfChannels()
	samples := a.Buf().NumberOfSamples()
	out := make([]uint32, 0, channels*samples)
	for c := 0; c < channels; c++ {
		in := a.Buf().AccessChannel(c)
		for s := 0; s < samples; s++ {
			out = append(out, uint32(in[s]))
		}
	}
	return out
}

// TwoRegisters / ThreeRegisters are write-only: the status-based read is
// explicitly not finalized in the original source (spec.md §4.5). Only
// SixRegisters accessors are readable.
func (h *handshakeAccessor[T]) isReadable() bool { return h.be.Config().Mode == SixRegisters }
func (h *handshakeAccessor[T]) isWriteable() bool { return true }

func (h *handshakeAccessor[T]) doReadTransferSynchronously(ctx context.Context) error {
	if h.be.Config().Mode != SixRegisters {
		return regerr.Logic("read", "register %q is write-only in mode %q", h.Name(), h.be.Config().Mode)
	}
	channels := h.Buf().NumberOfChannels()
	samples := h.Buf().NumberOfSamples()
	idx := 0
	for c := 0; c < channels; c++ {
		out := h.Buf().AccessChannel(c)
		for s := 0; s < samples; s++ {
			word, err := h.be.ReadWord(ctx, h.address+uint32(idx))
			if err != nil {
				return err
			}
			out[s] = T(word)
			idx++
		}
	}
	h.SetVersion(vnum.New())
	return nil
}

func (h *handshakeAccessor[T]) doWriteTransfer(ctx context.Context, v vnum.Number) (bool, error) {
	channels := h.Buf().NumberOfChannels()
	samples := h.Buf().NumberOfSamples()
	idx := 0
	for c := 0; c < channels; c++ {
		in := h.Buf().AccessChannel(c)
		for s := 0; s < samples; s++ {
			if err := h.be.WriteWord(ctx, h.address+uint32(idx), uint32(in[s])); err != nil {
				return false, err
			}
			idx++
		}
	}
	return false, nil
}

func (h *handshakeAccessor[T]) doWriteTransferDestructively(ctx context.Context, v vnum.Number) (bool, error) {
	return h.doWriteTransfer(ctx, v)
}

func (h *handshakeAccessor[T]) doPostRead(typ transfer.Type, updateDataBuffer bool) {}
