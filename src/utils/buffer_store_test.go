package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferStoreEnsureReplacesOnCapacityChange(t *testing.T) {
	bs := NewBufferStore[int]()

	buf := bs.Add(1, 3, 10)
	bs.Add(1, 3, 20)
	assert.Same(t, buf, bs.Get(1))
	assert.Equal(t, 2, buf.Size())

	resized := bs.Ensure(1, 5)
	assert.NotSame(t, buf, resized)
	assert.Equal(t, 5, resized.Capacity())
	assert.Equal(t, 0, resized.Size())
	assert.Equal(t, 1, bs.Len())
}

func TestBufferStoreLookup(t *testing.T) {
	bs := NewBufferStore[string]()
	assert.Nil(t, bs.Get("missing"))

	bs.Add("a", 2, 1)
	bs.Add("b", 2, 1)
	assert.NotNil(t, bs.Get("a"))
	assert.Equal(t, 2, bs.Len())

	bs.Clear()
	assert.Equal(t, 0, bs.Len())
	assert.Nil(t, bs.Get("a"))
}

func TestCadenceGateFiresEveryN(t *testing.T) {
	g := NewCadenceGate(3)
	var fired []int
	for i := 1; i <= 7; i++ {
		if g.Tick() {
			fired = append(fired, i)
		}
	}
	assert.Equal(t, []int{3, 6}, fired)

	one := NewCadenceGate(0)
	assert.True(t, one.Tick())
	assert.True(t, one.Tick())

	g.SetEvery(2)
	assert.True(t, g.Tick(), "running count is kept")
}
