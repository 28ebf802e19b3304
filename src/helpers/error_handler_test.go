package helpers

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"market-flipper/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardRecoversPanic(t *testing.T) {
	h := NewErrorHandler(logger.NewLoggerWithWriter(nil, "test", &bytes.Buffer{}))

	err := h.Guard("compute", func() error {
		var m map[int]int
		m[1] = 1 // nil map write
		return nil
	})

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "compute panicked")
	assert.NotEmpty(t, pe.Stack)
}

func TestGuardPassesThroughErrors(t *testing.T) {
	h := NewErrorHandler(nil)
	sentinel := errors.New("boom")

	assert.ErrorIs(t, h.Guard("op", func() error { return sentinel }), sentinel)
	assert.NoError(t, h.Guard("op", func() error { return nil }))
}

func TestHandleCountsErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	h := NewErrorHandler(logger.NewLoggerWithWriter(nil, "test", buf))

	h.Handle(nil, "noop")
	h.Handle(errors.New("bad"), "tick")

	assert.Equal(t, 1, h.ErrorCount)
	assert.Contains(t, buf.String(), "Error in tick: bad")
	h.ResetErrorCount()
	assert.Equal(t, 0, h.ErrorCount)
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	got, err := RetryWithBackoff(nil, "fetch", 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = RetryWithBackoff(nil, "fetch", 2, time.Millisecond, func() (int, error) {
		calls++
		return 0, errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("refused")
	err := NewNetworkError("fetch latest failed", cause)

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch latest failed: refused", err.Error())
}
