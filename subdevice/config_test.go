package subdevice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regaccess-go/regerr"
)

func TestParseURIArea(t *testing.T) {
	cfg, err := ParseURI("type=area&device=TCK7_0&area=APP.0.EXT_PZ16M&map=piezo.mapp")
	require.NoError(t, err)
	assert.Equal(t, Area, cfg.Mode)
	assert.Equal(t, "TCK7_0", cfg.TargetDevice)
	assert.Equal(t, "APP.0.EXT_PZ16M", cfg.TargetArea)
	assert.Equal(t, "piezo.mapp", cfg.MapFile)
	assert.True(t, cfg.IsReadWrite())
}

func TestParseURISixRegisters(t *testing.T) {
	raw := "type=6regs&device=alias&address=ADDR&data=DATA&status=STATUS" +
		"&readRequest=RREQ&readData=RDATA&chipSelectRegister=CS&chipIndex=2&map=m.mapp"
	cfg, err := ParseURI(raw)
	require.NoError(t, err)
	assert.Equal(t, SixRegisters, cfg.Mode)
	assert.Equal(t, 2, cfg.ChipIndex)
	assert.Equal(t, "RREQ", cfg.TargetReadRequest)
	assert.Equal(t, "RDATA", cfg.TargetReadData)
	assert.Equal(t, "CS", cfg.TargetChipSelect)
	assert.True(t, cfg.IsReadWrite())
}

func TestParseURIDefaultChipIndexIsZero(t *testing.T) {
	raw := "type=6regs&device=alias&address=ADDR&data=DATA&status=STATUS" +
		"&readRequest=RREQ&readData=RDATA&chipSelectRegister=CS&map=m.mapp"
	cfg, err := ParseURI(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.ChipIndex)
}

func TestParseURITwoRegistersDefaultSleep(t *testing.T) {
	cfg, err := ParseURI("type=2regs&device=alias&address=ADDR&data=DATA")
	require.NoError(t, err)
	assert.Equal(t, 100*time.Microsecond, cfg.SleepTime)
	assert.False(t, cfg.IsReadWrite())
}

func TestParseURIUnknownTypeIsLogicError(t *testing.T) {
	_, err := ParseURI("type=bogus&device=alias")
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))
}

func TestParseURIMissingRequiredFieldIsLogicError(t *testing.T) {
	_, err := ParseURI("type=area&device=alias")
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))

	_, err = ParseURI("type=area&area=X")
	require.Error(t, err)
	assert.True(t, regerr.IsLogic(err))
}

func TestParseURITimeoutOverride(t *testing.T) {
	cfg, err := ParseURI("type=3regs&device=alias&address=A&data=D&status=S&timeout=0.5")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeout)
}
