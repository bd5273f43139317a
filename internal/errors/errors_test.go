package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRendersKindAndMessage(t *testing.T) {
	err := Namef("undefined variable %q", "x")
	assert.Equal(t, `NameError: undefined variable "x"`, err.Error())
}

func TestIsMatchesKind(t *testing.T) {
	err := Typef("not a function")
	assert.True(t, Is(err, TypeError))
	assert.False(t, Is(err, ValueError))
	assert.False(t, Is(errors.New("plain"), RuntimeError))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "db_open failed")
	assert.Equal(t, RuntimeError, err.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestPushFrameAccumulatesInnermostFirst(t *testing.T) {
	var err error = Runtimef("boom")
	err = PushFrame(err, "inner")
	err = PushFrame(err, "outer")

	le, ok := err.(*L3Error)
	require.True(t, ok)
	require.Len(t, le.CallStack, 2)
	assert.Equal(t, "inner", le.CallStack[0].Function)
	assert.Equal(t, "outer", le.CallStack[1].Function)
	assert.Contains(t, le.Stack(), "at inner")
	assert.Contains(t, le.Stack(), "at outer")
}

func TestPushFrameIgnoresNonL3Error(t *testing.T) {
	plain := errors.New("plain")
	assert.Same(t, plain, PushFrame(plain, "f"))
}

func TestStackEmptyWithNoFrames(t *testing.T) {
	assert.Equal(t, "", Runtimef("boom").Stack())
}
