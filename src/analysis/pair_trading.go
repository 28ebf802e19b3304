package analysis

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"market-flipper/src/analysis/core"
	"market-flipper/src/helpers"
	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"
	"market-flipper/src/utils"
)

// -----------------------------------------------------------------------------
// PairTradingEngine watches registered instrument pairs and signals when the
// spread of their deviations from the 24h average is z-score extreme.
// -----------------------------------------------------------------------------

type PairTradingEngine struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	errors   *helpers.ErrorHandler
	mu       sync.Mutex
	pairs    map[models.MPairKey]*pairState
	snapshot Published[models.MPairSignal]
}

// pairState holds the per-pair history. fresh is false when the last tick
// could not price both legs, so the pair is not evaluated on that tick.
type pairState struct {
	key    models.MPairKey
	window int
	devA   *utils.RingBuffer
	devB   *utils.RingBuffer
	spread *utils.RingBuffer

	fresh      bool
	lastDevA   float64
	lastDevB   float64
	lastSpread float64
}

func newPairState(key models.MPairKey, window int) *pairState {
	return &pairState{
		key:    key,
		window: window,
		devA:   utils.MustRingBuffer(window),
		devB:   utils.MustRingBuffer(window),
		spread: utils.MustRingBuffer(window),
	}
}

func (s *pairState) warm() bool {
	return s.devA.Size() >= s.window && s.devB.Size() >= s.window && s.spread.Size() >= s.window
}

// -----------------------------------------------------------------------------

// NewPairTradingEngine builds the engine and registers the configured pairs.
// Invalid configured pairs are logged and skipped.
func NewPairTradingEngine(config *models.MConfig, log *logger.Logger) *PairTradingEngine {
	e := &PairTradingEngine{
		Config: config,
		Logger: log,
		errors: helpers.NewErrorHandler(log),
		pairs:  make(map[models.MPairKey]*pairState),
	}
	for _, p := range config.Strategies.PairsTrading.Pairs {
		if _, err := e.RegisterPair(p[0], p[1]); err != nil {
			log.Warning("Skipping configured pair %d/%d: %v", p[0], p[1], err)
		}
	}
	return e
}

// -----------------------------------------------------------------------------

func (e *PairTradingEngine) Name() string { return models.EnginePairTrading }

func (e *PairTradingEngine) Count() int { return len(e.snapshot.Load()) }

func (e *PairTradingEngine) Version() int64 { return e.snapshot.Version() }

func (e *PairTradingEngine) Snapshot() []models.MPairSignal { return e.snapshot.Load() }

func (e *PairTradingEngine) window() int {
	return max(utils.MinCorrelationWindow, e.Config.Strategies.PairsTrading.CorrelationWindow)
}

// -----------------------------------------------------------------------------

// RegisterPair starts tracking (a, b). Registering an existing pair keeps its history.
func (e *PairTradingEngine) RegisterPair(a, b int) (models.MPairKey, error) {
	key, err := models.NewPairKey(a, b)
	if err != nil {
		return models.MPairKey{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pairs[key]; !ok {
		e.pairs[key] = newPairState(key, e.window())
	}
	return key, nil
}

// -----------------------------------------------------------------------------

// UnregisterPair stops tracking (a, b) and drops its history.
func (e *PairTradingEngine) UnregisterPair(a, b int) (models.MPairKey, error) {
	key, err := models.NewPairKey(a, b)
	if err != nil {
		return models.MPairKey{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pairs[key]; !ok {
		return key, fmt.Errorf("pair %s is not registered", key)
	}
	delete(e.pairs, key)
	return key, nil
}

// -----------------------------------------------------------------------------

// Pairs lists registered pairs in key order.
func (e *PairTradingEngine) Pairs() []models.MPairKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortedKeys()
}

func (e *PairTradingEngine) sortedKeys() []models.MPairKey {
	keys := make([]models.MPairKey, 0, len(e.pairs))
	for k := range e.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// -----------------------------------------------------------------------------

func (e *PairTradingEngine) OnTick(data interfaces.IMarketData) error {
	if !e.Config.Strategies.PairsTrading.Enable {
		e.snapshot.Store(nil)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if data == nil || !data.IsReady() {
		return nil
	}
	if len(e.pairs) == 0 {
		e.snapshot.Store(nil)
		return nil
	}

	return publishGuarded(e.errors, e.Name(), &e.snapshot, func() ([]models.MPairSignal, error) {
		e.update(data)
		return e.evaluate(data), nil
	})
}

// -----------------------------------------------------------------------------

// Update pushes this tick's deviations for every registered pair.
func (e *PairTradingEngine) Update(data interfaces.IMarketData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.update(data)
}

// Evaluate ranks signals from the current history without modifying it.
func (e *PairTradingEngine) Evaluate(data interfaces.IMarketData) []models.MPairSignal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluate(data)
}

// -----------------------------------------------------------------------------

func (e *PairTradingEngine) update(data interfaces.IMarketData) {
	window := e.window()
	instruments := data.Instruments()
	quotes := data.LatestQuotes()
	daily := data.IntervalStats(models.Window24h)

	for _, key := range e.sortedKeys() {
		st := e.pairs[key]
		st.fresh = false

		devA, okA := legDeviation(key.A, instruments, quotes, daily)
		devB, okB := legDeviation(key.B, instruments, quotes, daily)
		if !okA || !okB {
			continue
		}

		if st.window != window {
			st = newPairState(key, window)
			e.pairs[key] = st
		}

		spread := devA - devB
		st.devA.Add(devA)
		st.devB.Add(devB)
		st.spread.Add(spread)
		st.lastDevA, st.lastDevB, st.lastSpread = devA, devB, spread
		st.fresh = true
	}
}

// legDeviation is (avg24hLow - low) / avg24hLow * 100 for one instrument.
func legDeviation(
	id int,
	instruments map[int]models.MInstrument,
	quotes map[int]models.MQuote,
	daily map[int]models.MIntervalStat,
) (float64, bool) {
	if _, ok := instruments[id]; !ok {
		return 0, false
	}
	q, ok := quotes[id]
	if !ok || !q.Usable() {
		return 0, false
	}
	d, ok := daily[id]
	if !ok || d.AvgLowPrice <= 0 {
		return 0, false
	}
	return core.DeviationPercent(float64(d.AvgLowPrice), float64(q.Low)), true
}

// -----------------------------------------------------------------------------

type rankedSignal struct {
	signal models.MPairSignal
	absZ   float64
}

func (e *PairTradingEngine) evaluate(data interfaces.IMarketData) []models.MPairSignal {
	cfg := e.Config.Strategies.PairsTrading
	pipeline := NewFilterPipeline(e.Config)

	instruments := data.Instruments()
	quotes := data.LatestQuotes()
	volumes := data.DailyVolumes()
	daily := data.IntervalStats(models.Window24h)

	ranked := make([]rankedSignal, 0)
	for _, key := range e.sortedKeys() {
		st := e.pairs[key]
		if !st.fresh || !st.warm() {
			continue
		}

		corr := st.devA.Correlation(st.devB)
		if corr < cfg.MinCorrelation {
			continue
		}
		if math.Abs(st.lastSpread) < max(0, cfg.MinNetEdgePercent) {
			continue
		}

		mean := st.spread.MeanAll()
		std := st.spread.StdAll()
		if std <= 0 {
			continue
		}
		z := core.CalculateZScore(st.lastSpread, mean, std)
		if math.Abs(z) < max(0, cfg.EntryZScore) {
			continue
		}

		// Positive z: A sits further below its average than B.
		longA := z > 0
		cheapID, richID := key.B, key.A
		if longA {
			cheapID, richID = key.A, key.B
		}

		cheap, rich := instruments[cheapID], instruments[richID]
		cheapLow, richLow := quotes[cheapID].Low, quotes[richID].Low

		cheapVol, ok := volumes[cheapID]
		if !ok {
			continue
		}
		qty, ok := pipeline.Evaluate(cheap, cheapVol, cheapLow)
		if !ok {
			continue
		}
		if cfg.RequireBothLegsPassFilters {
			richVol, ok := volumes[richID]
			if !ok || !pipeline.Screen(rich, richVol, richLow) {
				continue
			}
		}

		profit := pipeline.NetSellPrice(daily[richID].AvgLowPrice) - cheapLow
		if profit < max(0, cfg.MinNetProfitGp) {
			continue
		}

		ranked = append(ranked, rankedSignal{
			absZ: math.Abs(z),
			signal: models.MPairSignal{
				Key:             key,
				NameA:           instruments[key.A].Name,
				NameB:           instruments[key.B].Name,
				DevA:            core.Round2(st.lastDevA),
				DevB:            core.Round2(st.lastDevB),
				Spread:          core.Round2(st.lastSpread),
				ZScore:          core.Round2(z),
				Correlation:     core.Round2(corr),
				LongAShortB:     longA,
				CheapLegID:      cheapID,
				CheapLegPrice:   cheapLow,
				ExpectedProfit:  profit,
				PlannedQuantity: qty,
			},
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].absZ != ranked[j].absZ {
			return ranked[i].absZ > ranked[j].absZ
		}
		return ranked[i].signal.Key.Less(ranked[j].signal.Key)
	})

	limit := max(1, cfg.MaxActivePairs)
	out := make([]models.MPairSignal, 0, min(limit, len(ranked)))
	for i := 0; i < len(ranked) && i < limit; i++ {
		out = append(out, ranked[i].signal)
	}
	return out
}
