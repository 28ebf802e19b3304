package analysis

import (
	"testing"

	"market-flipper/src/models"

	"github.com/stretchr/testify/assert"
)

func TestScreenRejectsEachFilter(t *testing.T) {
	cfg := testConfig()
	cfg.Filters = models.MFilterConfig{MembersOnly: true, MinVolume: 100, MinBuyLimit: 10}
	cfg.Risk.MaxPricePerUnit = 500
	p := NewFilterPipeline(cfg)

	member := models.MInstrument{ID: 1, Members: true, BuyLimit: intPtr(50)}

	assert.True(t, p.Screen(member, 100, 500), "boundary values pass")
	assert.False(t, p.Screen(models.MInstrument{ID: 2, BuyLimit: intPtr(50)}, 100, 100), "non-members rejected")
	assert.False(t, p.Screen(member, 99, 100), "low volume rejected")
	assert.False(t, p.Screen(models.MInstrument{ID: 3, Members: true, BuyLimit: intPtr(9)}, 100, 100), "small buy limit rejected")
	assert.True(t, p.Screen(models.MInstrument{ID: 4, Members: true}, 100, 100), "unlimited buy limit passes")
	assert.False(t, p.Screen(member, 100, 0), "non-positive price rejected")
	assert.False(t, p.Screen(member, 100, 501), "price over cap rejected")
}

func TestScreenClampsNegativeThresholds(t *testing.T) {
	cfg := testConfig()
	cfg.Filters = models.MFilterConfig{MinVolume: -5, MinBuyLimit: -5}
	cfg.Risk.MaxPricePerUnit = 0
	p := NewFilterPipeline(cfg)

	inst := models.MInstrument{ID: 1, BuyLimit: intPtr(0)}
	assert.True(t, p.Screen(inst, 0, 1))
	assert.False(t, p.Screen(inst, 0, 2), "max price floors at 1")
}

func TestPlannedQuantity(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxCapitalPerItem = 10_000
	cfg.Risk.BuyLimitUtilizationPercent = 80
	p := NewFilterPipeline(cfg)

	assert.Equal(t, 100, p.PlannedQuantity(100, nil), "capital bound only")
	assert.Equal(t, 40, p.PlannedQuantity(100, intPtr(50)), "80% of limit 50")
	assert.Equal(t, 0, p.PlannedQuantity(20_000, nil), "price above capital")

	cfg.Risk.BuyLimitUtilizationPercent = 250
	assert.Equal(t, 50, NewFilterPipeline(cfg).PlannedQuantity(100, intPtr(50)), "utilization caps at 100%")

	cfg.Risk.BuyLimitUtilizationPercent = 0
	assert.Equal(t, 0, NewFilterPipeline(cfg).PlannedQuantity(100, intPtr(50)), "utilization floors at 1%")
}

func TestEvaluateRequiresPositiveQuantity(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxCapitalPerItem = 50
	p := NewFilterPipeline(cfg)

	_, ok := p.Evaluate(models.MInstrument{ID: 1}, 10, 100)
	assert.False(t, ok)

	qty, ok := p.Evaluate(models.MInstrument{ID: 1}, 10, 25)
	assert.True(t, ok)
	assert.Equal(t, 2, qty)
}

func TestNetSellPriceAppliesFriction(t *testing.T) {
	p := NewFilterPipeline(testConfig())
	assert.Equal(t, 117, p.NetSellPrice(120))
}
