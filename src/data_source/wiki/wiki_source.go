package wiki

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-flipper/src/helpers"
	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"
)

const (
	DefaultBaseURL = "https://prices.runescape.wiki/api/v1/osrs"

	LatestEvery    = 60 * time.Second
	AggregateEvery = 300 * time.Second
	PollEvery      = 15 * time.Second
)

// endpoint is one resource of the prices API and how often it is refetched.
// every == 0 means fetch until loaded once.
type endpoint struct {
	path  string
	every time.Duration
}

var (
	epMapping = endpoint{path: "/mapping"}
	epLatest  = endpoint{path: "/latest", every: LatestEvery}
	epVolumes = endpoint{path: "/volumes", every: AggregateEvery}
	ep24h     = endpoint{path: "/24h", every: AggregateEvery}
	ep1h      = endpoint{path: "/1h", every: AggregateEvery}
)

// -----------------------------------------------------------------------------
// WikiPriceSource polls the OSRS Wiki real-time prices API and publishes an
// immutable market snapshot after every refresh that changed something.
// -----------------------------------------------------------------------------

type WikiPriceSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	BaseURL string
	Now     func() time.Time
	// OnRefreshError, if set, is called by the run loop for each incomplete refresh.
	OnRefreshError func(error)

	snapshot atomic.Pointer[models.MMarketSnapshot]
	errors   *helpers.ErrorHandler

	// guarded by mu; each map is replaced wholesale, never mutated
	mu          sync.Mutex
	instruments map[int]models.MInstrument
	quotes      map[int]models.MQuote
	volumes     map[int]int
	daily       map[int]models.MIntervalStat
	hourly      map[int]models.MIntervalStat
	fetchedAt   map[string]time.Time

	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
}

// -----------------------------------------------------------------------------

func NewWikiPriceSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *WikiPriceSource {
	base := strings.TrimRight(cfg.Network.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &WikiPriceSource{
		Config:    cfg,
		Network:   netMgr,
		Logger:    log,
		BaseURL:   base,
		Now:       time.Now,
		errors:    helpers.NewErrorHandler(log),
		fetchedAt: make(map[string]time.Time),
	}
}

// -----------------------------------------------------------------------------

func (s *WikiPriceSource) Name() string {
	return "osrs-wiki"
}

// Snapshot returns the latest published snapshot, or nil before the first refresh.
func (s *WikiPriceSource) Snapshot() *models.MMarketSnapshot {
	return s.snapshot.Load()
}

// -----------------------------------------------------------------------------

func (s *WikiPriceSource) due(ep endpoint, now time.Time) bool {
	last, ok := s.fetchedAt[ep.path]
	if !ok {
		return true
	}
	if ep.every == 0 {
		return false
	}
	return now.Sub(last) >= ep.every
}

// -----------------------------------------------------------------------------

// Refresh fetches every endpoint that is due. Failed endpoints keep their
// previous data and are retried on the next call.
func (s *WikiPriceSource) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	var errs []error
	changed := false

	fetch := func(ep endpoint, apply func([]byte) error) {
		if !s.due(ep, now) {
			return
		}
		body, err := s.Network.Get(ctx, s.BaseURL+ep.path, nil)
		if err == nil {
			err = apply(body)
		}
		if err != nil {
			wrapped := helpers.NewDataSourceError(fmt.Sprintf("refresh %s", ep.path), err)
			s.errors.Handle(wrapped, s.Name())
			errs = append(errs, wrapped)
			return
		}
		s.fetchedAt[ep.path] = now
		changed = true
	}

	fetch(epMapping, func(b []byte) (err error) {
		s.instruments, err = decodeOrKeep(decodeMapping, b, s.instruments)
		return err
	})
	fetch(epLatest, func(b []byte) (err error) {
		s.quotes, err = decodeOrKeep(decodeLatest, b, s.quotes)
		return err
	})
	fetch(epVolumes, func(b []byte) (err error) {
		s.volumes, err = decodeOrKeep(decodeVolumes, b, s.volumes)
		return err
	})
	fetch(ep24h, func(b []byte) (err error) {
		s.daily, err = decodeOrKeep(decodeInterval, b, s.daily)
		return err
	})
	fetch(ep1h, func(b []byte) (err error) {
		s.hourly, err = decodeOrKeep(decodeInterval, b, s.hourly)
		return err
	})

	if changed {
		s.publish()
	}
	return errors.Join(errs...)
}

// decodeOrKeep returns the decoded value, or prev when decoding fails.
func decodeOrKeep[T any](decode func([]byte) (T, error), body []byte, prev T) (T, error) {
	v, err := decode(body)
	if err != nil {
		return prev, err
	}
	return v, nil
}

// -----------------------------------------------------------------------------

func (s *WikiPriceSource) publish() {
	snap := models.NewMarketSnapshot(s.instruments, s.quotes, s.volumes, map[string]map[int]models.MIntervalStat{
		models.Window24h: s.daily,
		models.Window1h:  s.hourly,
	})
	snap.LatestFetchedAt = s.fetchedAt[epLatest.path].Unix()
	snap.VolumesFetchedAt = s.fetchedAt[epVolumes.path].Unix()
	snap.Stats24hFetched = s.fetchedAt[ep24h.path].Unix()
	snap.Stats1hFetched = s.fetchedAt[ep1h.path].Unix()

	now := s.Now().Unix()
	for _, q := range snap.Quotes {
		if models.IsStale(q, now) {
			snap.StaleQuotes++
		}
	}

	s.snapshot.Store(snap)
	s.Logger.Debug("Published snapshot: %d instruments, %d quotes (%d stale), ready=%v",
		len(snap.InstrumentMap), len(snap.Quotes), snap.StaleQuotes, snap.IsReady())
}

// -----------------------------------------------------------------------------

// Start runs the refresh loop until ctx is cancelled or Stop is called.
func (s *WikiPriceSource) Start(parentCtx context.Context, wg *sync.WaitGroup) error {
	if !s.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	wg.Add(1)
	go s.runLoop(ctx, wg)
	s.Logger.Info("Started %s polling %s", s.Name(), s.BaseURL)
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (s *WikiPriceSource) Stop() error {
	if !s.isRunning.CompareAndSwap(true, false) {
		return fmt.Errorf("source %s is not running", s.Name())
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.Logger.Info("Stopped %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (s *WikiPriceSource) runLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.isRunning.Store(false)

	ticker := time.NewTicker(PollEvery)
	defer ticker.Stop()

	for {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.Logger.Warning("Refresh incomplete: %v", err)
			if s.OnRefreshError != nil {
				s.OnRefreshError(err)
			}
		}

		select {
		case <-ctx.Done():
			s.Logger.Info("%s loop exiting", s.Name())
			return
		case <-ticker.C:
		}
	}
}
