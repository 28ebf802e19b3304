package analysis

import (
	"math"

	"market-flipper/src/analysis/core"
	"market-flipper/src/models"
)

// -----------------------------------------------------------------------------
// FilterPipeline is the shared pre-trade screen and quantity sizing.
// It is stateless; every engine builds one from the current config per tick.
// -----------------------------------------------------------------------------

type FilterPipeline struct {
	Filters models.MFilterConfig
	Risk    models.MRiskConfig
}

// -----------------------------------------------------------------------------

func NewFilterPipeline(cfg *models.MConfig) FilterPipeline {
	return FilterPipeline{Filters: cfg.Filters, Risk: cfg.Risk}
}

// -----------------------------------------------------------------------------

// Screen applies the item-universe filters and the unit price cap.
func (f FilterPipeline) Screen(inst models.MInstrument, volume24h int, unitPrice int) bool {
	if f.Filters.MembersOnly && !inst.Members {
		return false
	}
	if volume24h < max(0, f.Filters.MinVolume) {
		return false
	}
	if inst.BuyLimit != nil && *inst.BuyLimit < max(0, f.Filters.MinBuyLimit) {
		return false
	}
	if unitPrice <= 0 || unitPrice > max(1, f.Risk.MaxPricePerUnit) {
		return false
	}
	return true
}

// -----------------------------------------------------------------------------

// PlannedQuantity is min(capital / price, buyLimit * utilization%).
// A nil buy limit does not cap the quantity.
func (f FilterPipeline) PlannedQuantity(unitPrice int, buyLimit *int) int {
	maxCap := max(1, f.Risk.MaxCapitalPerItem)
	byCapital := max(0, maxCap/max(1, unitPrice))
	if buyLimit == nil {
		return byCapital
	}

	util := core.Clamp(f.Risk.BuyLimitUtilizationPercent, 1, 100)
	byLimit := int(math.Floor(float64(*buyLimit) * util / 100.0))
	return min(byCapital, byLimit)
}

// -----------------------------------------------------------------------------

// Evaluate screens the instrument and sizes it; ok is false when either step rejects.
func (f FilterPipeline) Evaluate(inst models.MInstrument, volume24h int, unitPrice int) (int, bool) {
	if !f.Screen(inst, volume24h, unitPrice) {
		return 0, false
	}
	qty := f.PlannedQuantity(unitPrice, inst.BuyLimit)
	if qty <= 0 {
		return 0, false
	}
	return qty, true
}

// -----------------------------------------------------------------------------

// NetSellPrice is the sell price after fee and slippage.
func (f FilterPipeline) NetSellPrice(price int) int {
	return core.NetSellPrice(price, f.Risk.FeeSlippagePercent)
}
