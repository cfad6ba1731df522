package dummy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"regaccess-go/accessmode"
	"regaccess-go/conformance"
	"regaccess-go/transfer"
)

func TestDummyConformsToUnifiedBackendTest(t *testing.T) {
	b := New(testCatalogue(), nil)
	require.NoError(t, b.Open())

	conformance.Run(t, "dummy", conformance.Fixture{
		ReadWrite: func(t *testing.T) transfer.Accessor[conformance.Word] {
			acc, err := GetAccessor[conformance.Word](b, "SCALAR", 1, 1, accessmode.Set{})
			require.NoError(t, err)
			return acc
		},
		ReadOnly: func(t *testing.T) transfer.Accessor[conformance.Word] {
			acc, err := GetAccessor[conformance.Word](b, "RO", 1, 1, accessmode.Set{})
			require.NoError(t, err)
			return acc
		},
	})
}
