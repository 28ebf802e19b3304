package analysis

import (
	"sync"
	"sync/atomic"
	"time"

	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"
)

// -----------------------------------------------------------------------------
// AnalysisFacade owns the four engines and drives them once per tick.
// Engines share no state, so they run concurrently.
// -----------------------------------------------------------------------------

type AnalysisFacade struct {
	Config        *models.MConfig
	Logger        *logger.Logger
	Spread        *SpreadEngine
	MeanReversion *MeanReversionEngine
	PairTrading   *PairTradingEngine
	PairDiscovery *PairDiscoveryEngine

	observers []interfaces.IEngineObserver
	tick      atomic.Int64
	last      atomic.Pointer[models.MTickReport]
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{
		Config:        cfg,
		Logger:        log,
		Spread:        NewSpreadEngine(cfg, log.With(models.EngineSpread)),
		MeanReversion: NewMeanReversionEngine(cfg, log.With(models.EngineMeanReversion)),
		PairTrading:   NewPairTradingEngine(cfg, log.With(models.EnginePairTrading)),
		PairDiscovery: NewPairDiscoveryEngine(cfg, log.With(models.EnginePairDiscovery)),
	}
}

// -----------------------------------------------------------------------------

// AddObserver attaches a tick listener. Call before the first tick.
func (a *AnalysisFacade) AddObserver(o interfaces.IEngineObserver) {
	a.observers = append(a.observers, o)
}

// Engines returns the engines in AllEngines order.
func (a *AnalysisFacade) Engines() []Engine {
	return []Engine{a.Spread, a.MeanReversion, a.PairTrading, a.PairDiscovery}
}

// LastReport returns the report of the most recent tick, if any.
func (a *AnalysisFacade) LastReport() (models.MTickReport, bool) {
	if r := a.last.Load(); r != nil {
		return *r, true
	}
	return models.MTickReport{}, false
}

// -----------------------------------------------------------------------------

// RunTick feeds one snapshot to every engine and waits for all of them.
func (a *AnalysisFacade) RunTick(data interfaces.IMarketData) models.MTickReport {
	start := time.Now()
	engines := a.Engines()

	report := models.MTickReport{
		Tick:      a.tick.Add(1),
		Timestamp: start.Unix(),
		FeedReady: data != nil && data.IsReady(),
		Engines:   make([]models.MEngineReport, len(engines)),
	}

	var wg sync.WaitGroup
	for i, engine := range engines {
		wg.Add(1)
		go func(i int, engine Engine) {
			defer wg.Done()
			report.Engines[i] = a.runEngine(engine, data)
		}(i, engine)
	}
	wg.Wait()

	report.TotalDurationSeconds = time.Since(start).Seconds()
	a.last.Store(&report)

	for _, o := range a.observers {
		for _, er := range report.Engines {
			o.ObserveEngine(er)
		}
		o.ObserveTick(report)
	}

	a.Logger.Debug("Tick %d done in %.3fs (ready=%v)", report.Tick, report.TotalDurationSeconds, report.FeedReady)
	return report
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) runEngine(engine Engine, data interfaces.IMarketData) models.MEngineReport {
	before := engine.Version()
	start := time.Now()
	err := engine.OnTick(data)

	er := models.MEngineReport{
		Engine:          engine.Name(),
		DurationSeconds: time.Since(start).Seconds(),
		Candidates:      engine.Count(),
		Published:       engine.Version() != before,
	}
	if err != nil {
		er.Error = err.Error()
	}
	return er
}

// -----------------------------------------------------------------------------

// LatestData bundles every engine's published list for the server.
func (a *AnalysisFacade) LatestData(msgType string) *models.MLatestData {
	out := &models.MLatestData{
		Type:          msgType,
		Spread:        a.Spread.Snapshot(),
		MeanReversion: a.MeanReversion.Snapshot(),
		PairSignals:   a.PairTrading.Snapshot(),
		PairDiscovery: a.PairDiscovery.Snapshot(),
		Timestamp:     time.Now().Unix(),
	}
	if r, ok := a.LastReport(); ok {
		out.Report = r
	}
	return out
}
