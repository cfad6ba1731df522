package regerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsLogic(Logic("op", "bad %s", "thing")))
	assert.True(t, IsRuntime(Runtime("op", "down")))
	assert.True(t, IsInterrupted(Interrupted("op")))
	assert.False(t, IsLogic(Runtime("op", "down")))
}

func TestDiscardValueNeverClassifiedAsLogicOrRuntime(t *testing.T) {
	assert.True(t, IsDiscard(DiscardValue))
	assert.False(t, IsLogic(DiscardValue))
	assert.False(t, IsRuntime(DiscardValue))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("inner")
	e := &E{K: KindRuntime, Op: "op", Msg: "wrapped", Err: inner}
	assert.ErrorIs(t, e, inner)
}

func TestOfUnrecognisedDefaultsToRuntime(t *testing.T) {
	assert.Equal(t, KindRuntime, Of(errors.New("some other error")))
}

func TestDataValidityString(t *testing.T) {
	assert.Equal(t, "ok", Ok.String())
	assert.Equal(t, "faulty", Faulty.String())
}

func TestErrorMessageIncludesOpAndMsg(t *testing.T) {
	err := Logic("write", "bad version")
	assert.Contains(t, err.Error(), "write")
	assert.Contains(t, err.Error(), "bad version")
}
