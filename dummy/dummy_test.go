package dummy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regaccess-go/accessmode"
	"regaccess-go/catalogue"
	"regaccess-go/regerr"
	"regaccess-go/vnum"
)

func testCatalogue() *catalogue.Catalogue {
	return &catalogue.Catalogue{
		Registers: map[string]*catalogue.RegisterInfo{
			"SCALAR":  {Name: "SCALAR", Channels: 1, Samples: 1, Readable: true, Writeable: true},
			"RO":      {Name: "RO", Channels: 1, Samples: 1, Readable: true, Writeable: false},
			"PUSHED":  {Name: "PUSHED", Channels: 1, Samples: 4, Readable: true, Writeable: true},
			"ASYNCED": {Name: "ASYNCED", Channels: 1, Samples: 4, Readable: true, Writeable: true, InterruptController: "0", InterruptID: "1"},
		},
		Interrupts: []catalogue.InterruptInfo{{Controller: "0", Interrupt: "1"}},
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "SCALAR", 1, 1, accessmode.Set{})
	require.NoError(t, err)

	acc.SetChannel(0, []int32{42})
	_, err = acc.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	acc2, err := GetAccessor[int32](b, "SCALAR", 1, 1, accessmode.Set{})
	require.NoError(t, err)
	require.NoError(t, acc2.Read(context.Background()))
	assert.Equal(t, int32(42), acc2.AccessChannel(0)[0])
}

func TestReadOnlyRegisterRejectsWrite(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "RO", 1, 1, accessmode.Set{})
	require.NoError(t, err)
	assert.False(t, acc.IsWriteable())

	_, err = acc.Write(context.Background(), vnum.New())
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))
}

func TestDummyWriteableSuffixOverridesReadOnly(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "RO.DUMMY_WRITEABLE", 1, 1, accessmode.Set{})
	require.NoError(t, err)
	assert.True(t, acc.IsWriteable())

	_, err = acc.Write(context.Background(), vnum.New())
	require.NoError(t, err)
}

func TestThrowOnReadAndWrite(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())
	acc, err := GetAccessor[int32](b, "SCALAR", 1, 1, accessmode.Set{})
	require.NoError(t, err)

	b.ThrowOnRead.Store(true)
	err = acc.Read(context.Background())
	require.Error(t, err)
	assert.True(t, regerr.IsRuntime(err))
	b.ThrowOnRead.Store(false)

	b.ThrowOnWrite.Store(true)
	_, err = acc.Write(context.Background(), vnum.New())
	require.Error(t, err)
	assert.True(t, regerr.IsRuntime(err))
}

func TestWriteOrderAndCount(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())
	acc, err := GetAccessor[int32](b, "SCALAR", 1, 1, accessmode.Set{})
	require.NoError(t, err)

	_, err = acc.Write(context.Background(), vnum.New())
	require.NoError(t, err)
	_, err = acc.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	count, err := b.WriteCount("SCALAR")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	order, err := b.WriteOrder("SCALAR")
	require.NoError(t, err)
	assert.Equal(t, int64(2), order)
}

func TestPushAccessorTriggerDelivery(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "PUSHED.PUSH_READ", 1, 4, accessmode.Set{})
	require.NoError(t, err)
	assert.True(t, acc.AccessModeFlags().Has(accessmode.WaitForNewData))

	writer, err := GetAccessor[int32](b, "PUSHED", 1, 4, accessmode.Set{})
	require.NoError(t, err)
	writer.SetChannel(0, []int32{1, 2, 3, 4})
	_, err = writer.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	b.ActivateAsyncRead(context.Background())
	require.NoError(t, acc.Read(context.Background()))
	assert.Equal(t, []int32{1, 2, 3, 4}, acc.AccessChannel(0))
}

func TestTriggerPushDeliversFreshValueAfterActivation(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "PUSHED.PUSH_READ", 1, 4, accessmode.Set{})
	require.NoError(t, err)

	writer, err := GetAccessor[int32](b, "PUSHED", 1, 4, accessmode.Set{})
	require.NoError(t, err)
	writer.SetChannel(0, []int32{1, 2, 3, 4})
	_, err = writer.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	b.ActivateAsyncRead(context.Background())
	require.NoError(t, acc.Read(context.Background()))
	assert.Equal(t, []int32{1, 2, 3, 4}, acc.AccessChannel(0))

	writer.SetChannel(0, []int32{9, 8, 7, 6})
	_, err = writer.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	require.NoError(t, b.TriggerPush(context.Background(), "PUSHED.PUSH_READ"))
	require.NoError(t, acc.Read(context.Background()))
	assert.Equal(t, []int32{9, 8, 7, 6}, acc.AccessChannel(0))
}

func TestTriggerPushWithNoSubscriberIsLogicError(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	err := b.TriggerPush(context.Background(), "PUSHED.PUSH_READ")
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))
}

func TestTriggerPushOnInterruptBoundAccessorIsLogicError(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	_, err := GetAccessor[int32](b, "ASYNCED", 1, 4, accessmode.New(accessmode.WaitForNewData))
	require.NoError(t, err)

	err = b.TriggerPush(context.Background(), "ASYNCED")
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))
}

func TestSetExceptionFanOutToPushAccessor(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "PUSHED.PUSH_READ", 1, 4, accessmode.Set{})
	require.NoError(t, err)
	b.ActivateAsyncRead(context.Background())
	require.NoError(t, acc.Read(context.Background()))

	b.SetException("comm failure")
	err = acc.Read(context.Background())
	require.Error(t, err)
	assert.True(t, regerr.IsRuntime(err))
}

func TestInterruptBoundAsyncAccessor(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "ASYNCED", 1, 4, accessmode.New(accessmode.WaitForNewData))
	require.NoError(t, err)

	writer, err := GetAccessor[int32](b, "ASYNCED", 1, 4, accessmode.Set{})
	require.NoError(t, err)
	writer.SetChannel(0, []int32{9, 9, 9, 9})
	_, err = writer.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	b.ActivateAsyncRead(context.Background())
	require.NoError(t, acc.Read(context.Background()))
	assert.Equal(t, []int32{9, 9, 9, 9}, acc.AccessChannel(0))

	trigger, err := GetAccessor[int32](b, "/DUMMY_INTERRUPT_0_1", 1, 1, accessmode.Set{})
	require.NoError(t, err)

	writer.SetChannel(0, []int32{5, 5, 5, 5})
	_, err = writer.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	_, err = trigger.Write(context.Background(), vnum.New())
	require.NoError(t, err)

	require.NoError(t, acc.Read(context.Background()))
	assert.Equal(t, []int32{5, 5, 5, 5}, acc.AccessChannel(0))
}

func TestSetExceptionFanOutToInterruptBoundAccessor(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	acc, err := GetAccessor[int32](b, "ASYNCED", 1, 4, accessmode.New(accessmode.WaitForNewData))
	require.NoError(t, err)
	b.ActivateAsyncRead(context.Background())
	require.NoError(t, acc.Read(context.Background()))

	b.SetException("down")
	err = acc.Read(context.Background())
	require.Error(t, err)
	assert.True(t, regerr.IsRuntime(err))

	updated, err := acc.ReadNonBlocking(context.Background())
	require.NoError(t, err)
	assert.False(t, updated, "deactivated accessor must not see a further value until reactivation")
}

func TestUnknownInterruptPseudoRegisterIsLogicError(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	_, err := GetAccessor[int32](b, "/DUMMY_INTERRUPT_9_9", 1, 1, accessmode.Set{})
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))
}

func TestKnownInterruptPseudoRegisterWithNoSubscribersIsNoop(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	trigger, err := GetAccessor[int32](b, "/DUMMY_INTERRUPT_0_1", 1, 1, accessmode.Set{})
	require.NoError(t, err)
	_, err = trigger.Write(context.Background(), vnum.New())
	require.NoError(t, err, "dispatch to an interrupt with no subscribers is a harmless no-op")
}
