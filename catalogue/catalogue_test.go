package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
registers:
  SCALAR:
    name: SCALAR
    channels: 1
    samples: 1
    cookedType: float64
    readable: true
    writeable: true
    supportedFlags: [raw, wait_for_new_data]
  PIEZO:
    name: PIEZO
    channels: 1
    samples: 4
    cookedType: float64
    byteOffset: 64
    readable: true
    writeable: true
interrupts:
  - controller: "0"
    interrupt: "1"
`

func writeTempCatalogue(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadFileParsesRegistersAndInterrupts(t *testing.T) {
	path := writeTempCatalogue(t)
	cat, err := LoadFile(path)
	require.NoError(t, err)

	info, ok := cat.Lookup("SCALAR")
	require.True(t, ok)
	assert.Equal(t, 1, info.Channels)
	assert.True(t, info.Readable)
	assert.True(t, info.Writeable)

	assert.True(t, cat.HasInterrupt("0", "1"))
	assert.False(t, cat.HasInterrupt("0", "2"))
}

func TestRegisterInfoFlagsParsesSupportedFlags(t *testing.T) {
	path := writeTempCatalogue(t)
	cat, err := LoadFile(path)
	require.NoError(t, err)

	info, _ := cat.Lookup("SCALAR")
	flags, err := info.Flags()
	require.NoError(t, err)
	assert.True(t, flags.Serialize() != "")
}

func TestHasInterruptFalseWithoutControllerAndID(t *testing.T) {
	info := &RegisterInfo{Name: "X"}
	assert.False(t, info.HasInterrupt())
}

func TestDescriptorKeyIsStableAcrossEqualValues(t *testing.T) {
	d1 := Descriptor{Path: nil, NumberOfWords: 4, WordOffset: 0}
	d2 := Descriptor{Path: nil, NumberOfWords: 4, WordOffset: 0}
	assert.Equal(t, d1.Key(), d2.Key())
}
