package subdevice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget is an in-memory Target used to drive the subdevice backend's
// handshake state machine without a real device behind it.
type fakeTarget struct {
	mu   sync.Mutex
	regs map[string][]uint32

	statusValue       []uint32 // successive values ReadWords("STATUS", ...) returns
	statusReadCount   int
	writeOrder        []string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{regs: make(map[string][]uint32)}
}

func (f *fakeTarget) ReadWords(ctx context.Context, register string, offset, count int) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if register == "STATUS" && len(f.statusValue) > 0 {
		idx := f.statusReadCount
		if idx >= len(f.statusValue) {
			idx = len(f.statusValue) - 1
		}
		f.statusReadCount++
		return []uint32{f.statusValue[idx]}, nil
	}
	data, ok := f.regs[register]
	if !ok {
		data = make([]uint32, offset+count)
	}
	if len(data) < offset+count {
		grown := make([]uint32, offset+count)
		copy(grown, data)
		data = grown
	}
	out := append([]uint32(nil), data[offset:offset+count]...)
	return out, nil
}

func (f *fakeTarget) WriteWords(ctx context.Context, register string, offset int, words []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeOrder = append(f.writeOrder, register)
	data, ok := f.regs[register]
	if !ok || len(data) < offset+len(words) {
		grown := make([]uint32, offset+len(words))
		copy(grown, data)
		data = grown
	}
	copy(data[offset:], words)
	f.regs[register] = data
	return nil
}

func areaConfig() Config {
	return Config{Mode: Area, TargetDevice: "dev", TargetArea: "AREA", Timeout: time.Second, SleepTime: time.Millisecond}
}

func TestAreaWriteGoesStraightToTargetArea(t *testing.T) {
	target := newFakeTarget()
	b := New(areaConfig(), target)
	b.Open()

	require.NoError(t, b.WriteArea(context.Background(), 16, []uint32{0xdead, 0xbeef}))
	words, err := target.ReadWords(context.Background(), "AREA", 16, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0xdead, 0xbeef}, words)
	assert.Empty(t, target.statusValue, "plain area mode must not touch a status register")
}

func TestThreeRegistersWriteTimesOutOnStuckStatus(t *testing.T) {
	target := newFakeTarget()
	target.statusValue = []uint32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	cfg := Config{
		Mode: ThreeRegisters, TargetDevice: "dev",
		TargetAddress: "ADDR", TargetData: "DATA", TargetStatus: "STATUS",
		SleepTime: time.Millisecond, Timeout: 5 * time.Millisecond,
	}
	b := New(cfg, target)
	b.Open()

	err := b.WriteWord(context.Background(), 4, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATUS")

	// the mutex must have been released: a subsequent transaction can proceed.
	target.statusValue = []uint32{0}
	require.NoError(t, b.WriteWord(context.Background(), 4, 8))
}

func TestSixRegistersWriteAndReadRoundTrip(t *testing.T) {
	target := newFakeTarget()
	target.statusValue = []uint32{0}
	cfg := Config{
		Mode: SixRegisters, TargetDevice: "dev",
		TargetAddress: "ADDR", TargetData: "DATA", TargetStatus: "STATUS",
		TargetReadRequest: "RREQ", TargetReadData: "RDATA", TargetChipSelect: "CS",
		ChipIndex: 3, SleepTime: time.Millisecond, Timeout: time.Second,
	}
	b := New(cfg, target)
	b.Open()

	require.NoError(t, b.WriteWord(context.Background(), 2, 99))
	written, err := target.ReadWords(context.Background(), "DATA", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), written[0])

	cs, err := target.ReadWords(context.Background(), "CS", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), cs[0])

	target.regs["RDATA"] = []uint32{1234}
	got, err := b.ReadWord(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1234), got)
}

func TestTwoAndThreeRegistersAreWriteOnly(t *testing.T) {
	target := newFakeTarget()
	cfg := Config{Mode: TwoRegisters, TargetDevice: "dev", TargetAddress: "A", TargetData: "D", SleepTime: time.Millisecond}
	b := New(cfg, target)
	b.Open()

	_, err := b.ReadWord(context.Background(), 0)
	require.Error(t, err)
}

func TestBackendFaultBlocksTransactions(t *testing.T) {
	target := newFakeTarget()
	b := New(areaConfig(), target)
	b.Open()
	b.SetException("down")

	err := b.WriteArea(context.Background(), 0, []uint32{1})
	require.Error(t, err)
}
