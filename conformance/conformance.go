// Package conformance implements the Unified Backend Test (spec.md §8): a
// property-based suite parameterized over any backend's accessor
// construction, exercised here against both the dummy and subdevice
// backends (spec.md §4.7) so the two independent implementations of the
// transfer protocol are held to the same invariants instead of each
// growing its own bespoke assertions.
package conformance

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regaccess-go/regerr"
	"regaccess-go/transfer"
	"regaccess-go/vnum"
)

// Word is the element type the suite drives accessors with. uint32 is the
// one raw type both dummy (via its Numeric constraint) and subdevice (via
// Word) can instantiate, so a single suite run covers both backends.
type Word = uint32

// Fixture supplies the accessors one backend needs to run the suite.
// ReadOnly may be nil when the backend under test has no natural read-only
// register to exercise (spec.md §8 property 5 is then skipped).
type Fixture struct {
	// ReadWrite returns a fresh accessor on a register that supports both
	// directions, with at least one channel and sample.
	ReadWrite func(t *testing.T) transfer.Accessor[Word]
	// ReadOnly returns a fresh accessor bound to a register that rejects
	// writes with a logic-error.
	ReadOnly func(t *testing.T) transfer.Accessor[Word]
}

// Run executes every property of the Unified Backend Test against fx,
// under the subtest name name.
func Run(t *testing.T, name string, fx Fixture) {
	t.Run(name, func(t *testing.T) {
		t.Run("fresh accessor has null version", func(t *testing.T) {
			acc := fx.ReadWrite(t)
			assert.True(t, acc.Version().IsNull())
		})

		t.Run("write then read round-trips the value", func(t *testing.T) {
			acc := fx.ReadWrite(t)
			require.True(t, acc.IsWriteable())
			want := make([]Word, acc.NumberOfSamples())
			for i := range want {
				want[i] = Word(i + 1)
			}
			acc.SetChannel(0, want)
			_, err := acc.Write(context.Background(), vnum.New())
			require.NoError(t, err)

			reader := fx.ReadWrite(t)
			require.True(t, reader.IsReadable())
			require.NoError(t, reader.Read(context.Background()))
			if diff := cmp.Diff(want, reader.AccessChannel(0)); diff != "" {
				t.Errorf("round-tripped value mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("version number never goes backwards on successive reads", func(t *testing.T) {
			acc := fx.ReadWrite(t)
			require.NoError(t, acc.Read(context.Background()))
			first := acc.Version()
			require.NoError(t, acc.Read(context.Background()))
			second := acc.Version()
			assert.True(t, first.LessOrEqual(second))
		})

		t.Run("SetChannel on one accessor does not alias another accessor's buffer", func(t *testing.T) {
			a := fx.ReadWrite(t)
			b := fx.ReadWrite(t)
			a.SetChannel(0, []Word{1, 2, 3})
			b.SetChannel(0, []Word{9, 9, 9})
			assert.NotEqual(t, a.AccessChannel(0), b.AccessChannel(0))
		})

		if fx.ReadOnly != nil {
			t.Run("read-only accessor rejects Write with a logic-error", func(t *testing.T) {
				acc := fx.ReadOnly(t)
				assert.False(t, acc.IsWriteable())
				_, err := acc.Write(context.Background(), vnum.New())
				require.Error(t, err)
				assert.True(t, regerr.IsLogic(err), "expected logic-error, got %v", err)
			})

			t.Run("read-only accessor still reads", func(t *testing.T) {
				acc := fx.ReadOnly(t)
				require.True(t, acc.IsReadable())
				assert.NoError(t, acc.Read(context.Background()))
			})
		}
	})
}
