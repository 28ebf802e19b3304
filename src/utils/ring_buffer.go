package utils

import (
	"fmt"

	"market-flipper/src/analysis/core"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-capacity circular buffer of float64 samples with
// streaming statistics. True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring buffer capacity must be > 0, got %d", capacity)
	}

	return &RingBuffer{
		data:     make([]float64, capacity),
		capacity: capacity,
	}, nil
}

// MustRingBuffer is NewRingBuffer for capacities already validated by the caller.
func MustRingBuffer(capacity int) *RingBuffer {
	rb, err := NewRingBuffer(capacity)
	if err != nil {
		panic(err)
	}
	return rb
}

// -----------------------------------------------------------------------------

// Add stores a value, overwriting the oldest one when full.
// The value is stored as given; callers feed finite numbers only.
func (rb *RingBuffer) Add(value float64) {
	rb.data[rb.index] = value
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}


// -----------------------------------------------------------------------------

// fromEnd returns the i-th most recent value (0 = newest).
func (rb *RingBuffer) fromEnd(i int) float64 {
	idx := (rb.index - 1 - i) % rb.capacity
	if idx < 0 {
		idx += rb.capacity
	}
	return rb.data[idx]
}

func (rb *RingBuffer) clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > rb.size {
		return rb.size
	}
	return n
}

// -----------------------------------------------------------------------------

// Last returns the newest value, or 0 when empty.
func (rb *RingBuffer) Last() float64 {
	if rb.size == 0 {
		return 0.0
	}
	return rb.fromEnd(0)
}

// -----------------------------------------------------------------------------

// Latest returns the n most recent values, oldest first.
func (rb *RingBuffer) Latest(n int) []float64 {
	count := rb.clamp(n)
	result := make([]float64, count)
	for i := 0; i < count; i++ {
		result[count-1-i] = rb.fromEnd(i)
	}
	return result
}

// -----------------------------------------------------------------------------

// Mean averages the n most recent values. Empty windows yield 0.
func (rb *RingBuffer) Mean(n int) float64 {
	count := rb.clamp(n)
	if count == 0 {
		return 0.0
	}
	sum := 0.0
	for i := 0; i < count; i++ {
		sum += rb.fromEnd(i)
	}
	return sum / float64(count)
}

// MeanAll is Mean over every stored value.
func (rb *RingBuffer) MeanAll() float64 {
	return rb.Mean(rb.size)
}

// -----------------------------------------------------------------------------

// Std is the sample standard deviation of the n most recent values.
// Fewer than two samples yield 0.
func (rb *RingBuffer) Std(n int) float64 {
	_, std := core.CalculateMeanStd(rb.Latest(n))
	return std
}

// StdAll is Std over every stored value.
func (rb *RingBuffer) StdAll() float64 {
	return rb.Std(rb.size)
}

// -----------------------------------------------------------------------------

// Correlation is the Pearson correlation of the most recent
// min(rb.Size(), other.Size()) samples, paired newest with newest.
// Returns 0 with fewer than two aligned samples or a constant leg.
func (rb *RingBuffer) Correlation(other *RingBuffer) float64 {
	if other == nil {
		return 0.0
	}
	n := rb.size
	if other.size < n {
		n = other.size
	}
	return core.CalculateCorrelation(rb.Latest(n), other.Latest(n))
}
