package utils

// -----------------------------------------------------------------------------
// BufferStore owns one RingBuffer per key (instrument id, pair key).
// It is owned by a single engine and is not safe for concurrent use.
// -----------------------------------------------------------------------------

type BufferStore[K comparable] struct {
	streams map[K]*RingBuffer
}

// -----------------------------------------------------------------------------

func NewBufferStore[K comparable]() *BufferStore[K] {
	return &BufferStore[K]{
		streams: make(map[K]*RingBuffer),
	}
}

// -----------------------------------------------------------------------------

// Get returns the buffer for key, or nil if none exists yet.
func (bs *BufferStore[K]) Get(key K) *RingBuffer {
	return bs.streams[key]
}

// -----------------------------------------------------------------------------

// Ensure returns the buffer for key, creating it on first use. A buffer whose
// capacity differs from the requested one is replaced by an empty one.
func (bs *BufferStore[K]) Ensure(key K, capacity int) *RingBuffer {
	if buf, ok := bs.streams[key]; ok && buf.Capacity() == capacity {
		return buf
	}
	buf := MustRingBuffer(capacity)
	bs.streams[key] = buf
	return buf
}

// -----------------------------------------------------------------------------

// Add appends value to the buffer for key (see Ensure).
func (bs *BufferStore[K]) Add(key K, capacity int, value float64) *RingBuffer {
	buf := bs.Ensure(key, capacity)
	buf.Add(value)
	return buf
}

// -----------------------------------------------------------------------------

// Len returns number of keys with buffers
func (bs *BufferStore[K]) Len() int {
	return len(bs.streams)
}

// Clear drops every buffer.
func (bs *BufferStore[K]) Clear() {
	bs.streams = make(map[K]*RingBuffer)
}
