package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, capacity int, values ...float64) *RingBuffer {
	t.Helper()
	rb, err := NewRingBuffer(capacity)
	require.NoError(t, err)
	for _, v := range values {
		rb.Add(v)
	}
	return rb
}

func TestNewRingBufferRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewRingBuffer(0)
	assert.Error(t, err)
	_, err = NewRingBuffer(-3)
	assert.Error(t, err)
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := fill(t, 3, 100, 1, 2, 3)

	assert.Equal(t, 3, rb.Size())
	assert.Equal(t, 3, rb.Capacity())
	assert.Equal(t, 2.0, rb.MeanAll(), "oldest value must no longer count")
	assert.Equal(t, []float64{1, 2, 3}, rb.Latest(10))
	assert.Equal(t, 3.0, rb.Last())
}

func TestRingBufferEmptyStatsAreZero(t *testing.T) {
	rb := fill(t, 4)

	assert.Equal(t, 0, rb.Size())
	assert.Equal(t, 0.0, rb.MeanAll())
	assert.Equal(t, 0.0, rb.StdAll())
	assert.Equal(t, 0.0, rb.Last())
	assert.Empty(t, rb.Latest(3))
}

func TestRingBufferStdSingleSampleIsZero(t *testing.T) {
	rb := fill(t, 4, 7)
	assert.Equal(t, 0.0, rb.StdAll())
}

func TestRingBufferWindowedStats(t *testing.T) {
	rb := fill(t, 5, 10, 20, 1, 2, 3)

	assert.Equal(t, 2.0, rb.Mean(3))
	assert.InDelta(t, 1.0, rb.Std(3), 1e-12)
	// n is clamped to [0, size]
	assert.Equal(t, 0.0, rb.Mean(-1))
	assert.Equal(t, rb.MeanAll(), rb.Mean(99))
	assert.Equal(t, rb.StdAll(), rb.Std(99))
}

func TestRingBufferStoresValuesAsGiven(t *testing.T) {
	rb := fill(t, 2, -5)
	assert.Equal(t, -5.0, rb.Last())
}

func TestRingBufferCorrelationWithItself(t *testing.T) {
	rb := fill(t, 8, 1, 3, 2, 5, 4)
	assert.InDelta(t, 1.0, rb.Correlation(rb), 1e-12)

	twin := fill(t, 8, 1, 3, 2, 5, 4)
	assert.InDelta(t, 1.0, rb.Correlation(twin), 1e-12)
}

func TestRingBufferCorrelationConstantLegIsZero(t *testing.T) {
	moving := fill(t, 5, 1, 2, 3, 4, 5)
	flat := fill(t, 5, 9, 9, 9, 9, 9)

	assert.Equal(t, 0.0, moving.Correlation(flat))
	assert.Equal(t, 0.0, flat.Correlation(moving))
}

func TestRingBufferCorrelationAlignsMostRecent(t *testing.T) {
	// long has extra old history that must be ignored
	long := fill(t, 10, 50, -50, 1, 2, 3, 4)
	short := fill(t, 10, 2, 4, 6, 8)

	assert.InDelta(t, 1.0, long.Correlation(short), 1e-12)
}

func TestRingBufferCorrelationNeedsTwoSamples(t *testing.T) {
	a := fill(t, 4, 1)
	b := fill(t, 4, 1, 2, 3)
	assert.Equal(t, 0.0, a.Correlation(b))
	assert.Equal(t, 0.0, a.Correlation(nil))
}
