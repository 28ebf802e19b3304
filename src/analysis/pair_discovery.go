package analysis

import (
	"sort"
	"sync/atomic"

	"market-flipper/src/analysis/core"
	"market-flipper/src/helpers"
	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"
	"market-flipper/src/utils"
)

// -----------------------------------------------------------------------------
// PairDiscoveryEngine scans the most traded instruments for highly correlated
// deviation series, so candidates can be registered with PairTradingEngine.
// -----------------------------------------------------------------------------

type PairDiscoveryEngine struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	errors   *helpers.ErrorHandler
	devs     *utils.BufferStore[int]
	spreads  *utils.BufferStore[models.MPairKey]
	gate     *utils.CadenceGate
	stats    atomic.Pointer[ScanStats]
	snapshot Published[models.MPairCandidate]
}

// ScanStats summarizes the most recent scan.
type ScanStats struct {
	UniverseSize int `json:"universe_size"`
	PairsScanned int `json:"pairs_scanned"`
	PairsKept    int `json:"pairs_kept"`
}

// -----------------------------------------------------------------------------

func NewPairDiscoveryEngine(config *models.MConfig, log *logger.Logger) *PairDiscoveryEngine {
	return &PairDiscoveryEngine{
		Config:  config,
		Logger:  log,
		errors:  helpers.NewErrorHandler(log),
		devs:    utils.NewBufferStore[int](),
		spreads: utils.NewBufferStore[models.MPairKey](),
		gate:    utils.NewCadenceGate(scanEvery(config.Strategies.Discovery)),
	}
}

// -----------------------------------------------------------------------------

func (e *PairDiscoveryEngine) Name() string { return models.EnginePairDiscovery }

func (e *PairDiscoveryEngine) Count() int { return len(e.snapshot.Load()) }

func (e *PairDiscoveryEngine) Version() int64 { return e.snapshot.Version() }

func (e *PairDiscoveryEngine) Snapshot() []models.MPairCandidate { return e.snapshot.Load() }

// Stats returns the counters of the last scan (zero before the first one).
func (e *PairDiscoveryEngine) Stats() ScanStats {
	if s := e.stats.Load(); s != nil {
		return *s
	}
	return ScanStats{}
}

func (e *PairDiscoveryEngine) window() int {
	return max(utils.MinCorrelationWindow, e.Config.Strategies.PairsTrading.CorrelationWindow)
}

func scanEvery(cfg models.MDiscoveryConfig) int {
	if cfg.ScanEveryTicks <= 0 {
		return utils.DefaultScanEveryTicks
	}
	return cfg.ScanEveryTicks
}

// -----------------------------------------------------------------------------

func (e *PairDiscoveryEngine) OnTick(data interfaces.IMarketData) error {
	if !e.Config.Strategies.Discovery.Enable {
		e.devs.Clear()
		e.spreads.Clear()
		e.snapshot.Store(nil)
		return nil
	}
	if data == nil || !data.IsReady() {
		return nil
	}

	e.gate.SetEvery(scanEvery(e.Config.Strategies.Discovery))
	if err := e.errors.Guard(e.Name()+" update", func() error {
		e.Update(data)
		return nil
	}); err != nil {
		e.errors.Handle(err, e.Name()+" update")
		return err
	}
	if !e.gate.Tick() {
		return nil
	}

	return publishGuarded(e.errors, e.Name(), &e.snapshot, func() ([]models.MPairCandidate, error) {
		rows, stats := e.Scan(data)
		e.stats.Store(&stats)
		return rows, nil
	})
}

// -----------------------------------------------------------------------------

// Update pushes the deviation of every screened instrument into its buffer.
func (e *PairDiscoveryEngine) Update(data interfaces.IMarketData) {
	window := e.window()
	pipeline := NewFilterPipeline(e.Config)

	instruments := data.Instruments()
	quotes := data.LatestQuotes()
	volumes := data.DailyVolumes()
	daily := data.IntervalStats(models.Window24h)

	for id, inst := range instruments {
		q, ok := quotes[id]
		if !ok || !q.Usable() {
			continue
		}
		vol, ok := volumes[id]
		if !ok {
			continue
		}
		d, ok := daily[id]
		if !ok || d.AvgLowPrice <= 0 {
			continue
		}
		if !pipeline.Screen(inst, vol, q.Low) {
			continue
		}
		e.devs.Add(id, window, core.DeviationPercent(float64(d.AvgLowPrice), float64(q.Low)))
	}
}

// -----------------------------------------------------------------------------

// Scan runs the exhaustive correlation scan over the current universe.
// Each kept pair's spread history receives one sample per scan.
func (e *PairDiscoveryEngine) Scan(data interfaces.IMarketData) ([]models.MPairCandidate, ScanStats) {
	cfg := e.Config.Strategies.Discovery
	minCorr := e.Config.Strategies.PairsTrading.MinCorrelation
	window := e.window()

	topN := cfg.TopNByVolume
	if topN <= 0 {
		topN = utils.DefaultTopNByVolume
	}
	minSamples := cfg.MinSamples
	if minSamples <= 0 {
		minSamples = utils.DefaultMinCorrSamples
	}
	maxOutput := cfg.MaxOutput
	if maxOutput <= 0 {
		maxOutput = utils.DefaultMaxCandidates
	}

	volumes := data.DailyVolumes()
	instruments := data.Instruments()
	universe := e.universe(volumes, topN, minSamples)
	stats := ScanStats{UniverseSize: len(universe)}

	out := make([]models.MPairCandidate, 0)
	for i := 0; i < len(universe); i++ {
		for j := i + 1; j < len(universe); j++ {
			stats.PairsScanned++

			a, b := universe[i], universe[j]
			ba, bb := e.devs.Get(a), e.devs.Get(b)
			samples := min(ba.Size(), bb.Size())
			if samples < minSamples {
				continue
			}
			corr := ba.Correlation(bb)
			if corr < minCorr {
				continue
			}

			key, err := models.NewPairKey(a, b)
			if err != nil {
				continue
			}
			devA, devB := e.devs.Get(key.A).Last(), e.devs.Get(key.B).Last()
			spread := devA - devB

			hist := e.spreads.Add(key, max(utils.MinSpreadHistoryCapacity, window), spread)
			var z *float64
			if hist.Size() >= utils.MinSpreadHistoryForZ {
				mean, std := hist.MeanAll(), hist.StdAll()
				if std > 0 {
					v := core.Round2(core.CalculateZScore(spread, mean, std))
					z = &v
				}
			}

			out = append(out, models.MPairCandidate{
				Key:               key,
				NameA:             instruments[key.A].Name,
				NameB:             instruments[key.B].Name,
				Correlation:       core.Round4(corr),
				Samples:           samples,
				DevA:              core.Round2(devA),
				DevB:              core.Round2(devB),
				Spread:            core.Round2(spread),
				SpreadZ:           z,
				CombinedVolume24h: volumes[key.A] + volumes[key.B],
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.Correlation != y.Correlation {
			return x.Correlation > y.Correlation
		}
		if x.AbsZ() != y.AbsZ() {
			return x.AbsZ() > y.AbsZ()
		}
		if x.CombinedVolume24h != y.CombinedVolume24h {
			return x.CombinedVolume24h > y.CombinedVolume24h
		}
		return x.Key.Less(y.Key)
	})

	stats.PairsKept = len(out)
	if len(out) > maxOutput {
		out = out[:maxOutput]
	}
	return out, stats
}

// -----------------------------------------------------------------------------

// universe is the top-N instruments by 24h volume that have enough history.
func (e *PairDiscoveryEngine) universe(volumes map[int]int, topN, minSamples int) []int {
	ids := make([]int, 0, len(volumes))
	for id := range volumes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if volumes[ids[i]] != volumes[ids[j]] {
			return volumes[ids[i]] > volumes[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > topN {
		ids = ids[:topN]
	}

	need := max(minSamples, min(utils.MaxUniverseSampleFloor, e.Config.Strategies.PairsTrading.CorrelationWindow/2))
	kept := ids[:0]
	for _, id := range ids {
		if buf := e.devs.Get(id); buf != nil && buf.Size() >= need {
			kept = append(kept, id)
		}
	}
	return kept
}
