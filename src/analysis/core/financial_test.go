package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetSellPriceFloorsAfterFriction(t *testing.T) {
	assert.Equal(t, 117, NetSellPrice(120, 2))
	assert.Equal(t, 120, NetSellPrice(120, 0))
	// negative friction is ignored
	assert.Equal(t, 120, NetSellPrice(120, -5))
}

func TestPercentAndDeviation(t *testing.T) {
	assert.Equal(t, 20.0, Percent(20, 100))
	assert.Equal(t, 0.0, Percent(20, 0))
	assert.Equal(t, 10.0, DeviationPercent(200, 180))
	assert.Equal(t, -10.0, DeviationPercent(200, 220))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(0, 1, 100))
	assert.Equal(t, 100.0, Clamp(250, 1, 100))
	assert.Equal(t, 80.0, Clamp(80, 1, 100))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2349))
	assert.Equal(t, 1.24, Round2(1.235))
	assert.Equal(t, -1.24, Round2(-1.235))
	assert.Equal(t, 0.9877, Round4(0.98765))
}
