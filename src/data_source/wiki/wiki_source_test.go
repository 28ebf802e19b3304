package wiki

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"market-flipper/src/helpers"
	"market-flipper/src/logger"
	"market-flipper/src/models"
	"market-flipper/src/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mappingJSON = `[
		{"id":4151,"name":"Abyssal whip","examine":"A weapon from the abyss.","members":true,"limit":70,"lowalch":48000,"highalch":72000,"value":120001,"icon":"Abyssal whip.png"},
		{"id":2,"name":"Cannonball","members":true,"lowalch":2,"highalch":3}
	]`
	latestJSON  = `{"data":{"4151":{"high":1500000,"highTime":1700000100,"low":1450000,"lowTime":1700000000},"2":{"high":null,"highTime":null,"low":180,"lowTime":1700000050},"bogus":{"high":1}}}`
	volumesJSON = `{"timestamp":1700000000,"data":{"4151":12000,"2":9000000}}`
	dailyJSON   = `{"timestamp":1700000000,"data":{"4151":{"avgHighPrice":1510000,"highPriceVolume":6000,"avgLowPrice":1460000,"lowPriceVolume":6100},"2":{"avgHighPrice":null,"highPriceVolume":0,"avgLowPrice":185,"lowPriceVolume":40000}}}`
	hourlyJSON  = `{"timestamp":1700000000,"data":{"4151":{"avgHighPrice":1505000,"highPriceVolume":200,"avgLowPrice":1455000,"lowPriceVolume":210}}}`
)

type fakeAPI struct {
	mu     sync.Mutex
	calls  map[string]int
	broken map[string]bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	broken := f.broken[r.URL.Path]
	f.mu.Unlock()

	if broken {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	body := map[string]string{
		"/mapping": mappingJSON,
		"/latest":  latestJSON,
		"/volumes": volumesJSON,
		"/24h":     dailyJSON,
		"/1h":      hourlyJSON,
	}[r.URL.Path]
	_, _ = w.Write([]byte(body))
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func newSource(t *testing.T, api *fakeAPI) (*WikiPriceSource, *time.Time) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	log := logger.NewLoggerWithWriter(nil, "wiki", &bytes.Buffer{})
	cfg := &models.MConfig{Network: models.MNetworkConfig{BaseURL: srv.URL + "/", RequestTimeout: 5}}
	nm := network.NewAsyncNetworkManager(cfg, log)
	nm.BaseDelay = 0

	clock := time.Unix(1_700_000_000, 0)
	src := NewWikiPriceSource(cfg, nm, log)
	src.Now = func() time.Time { return clock }
	return src, &clock
}

func TestRefreshBuildsReadySnapshot(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}, broken: map[string]bool{}}
	src, _ := newSource(t, api)
	assert.Nil(t, src.Snapshot())

	require.NoError(t, src.Refresh(context.Background()))

	snap := src.Snapshot()
	require.NotNil(t, snap)
	assert.True(t, snap.IsReady())
	assert.Equal(t, []int{2, 4151}, snap.InstrumentIDs())

	whip := snap.Instruments()[4151]
	assert.Equal(t, "Abyssal whip", whip.Name)
	require.NotNil(t, whip.BuyLimit)
	assert.Equal(t, 70, *whip.BuyLimit)
	assert.Nil(t, snap.Instruments()[2].BuyLimit, "missing limit means unlimited")

	_, ok := snap.LatestQuotes()[2]
	assert.False(t, ok, "quotes with a null side are dropped")
	assert.Len(t, snap.LatestQuotes(), 1, "non-numeric keys are skipped")
	for _, q := range snap.LatestQuotes() {
		assert.True(t, q.Usable())
	}

	assert.Equal(t, 9_000_000, snap.DailyVolumes()[2])
	_, ok = snap.IntervalStats(models.Window24h)[2]
	assert.False(t, ok, "interval rows with a null average are dropped")
	assert.Equal(t, 1_460_000, snap.IntervalStats(models.Window24h)[4151].AvgLowPrice)
	assert.Equal(t, 1_455_000, snap.IntervalStats(models.Window1h)[4151].AvgLowPrice)
	assert.Equal(t, int64(1_700_000_000), snap.LatestFetchedAt)
}

func TestRefreshHonoursCadence(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}, broken: map[string]bool{}}
	src, clock := newSource(t, api)
	ctx := context.Background()

	require.NoError(t, src.Refresh(ctx))
	require.NoError(t, src.Refresh(ctx))
	assert.Equal(t, 1, api.count("/latest"))

	*clock = clock.Add(LatestEvery)
	require.NoError(t, src.Refresh(ctx))
	assert.Equal(t, 2, api.count("/latest"))
	assert.Equal(t, 1, api.count("/24h"))

	*clock = clock.Add(AggregateEvery)
	require.NoError(t, src.Refresh(ctx))
	assert.Equal(t, 2, api.count("/24h"))
	assert.Equal(t, 1, api.count("/mapping"), "mapping loads once")
}

func TestSnapshotCountsStaleQuotes(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}, broken: map[string]bool{}}
	src, clock := newSource(t, api)
	ctx := context.Background()

	require.NoError(t, src.Refresh(ctx))
	assert.Zero(t, src.Snapshot().StaleQuotes)

	// the fixture trades stay at the same timestamps
	*clock = clock.Add(20 * time.Minute)
	require.NoError(t, src.Refresh(ctx))
	assert.Equal(t, 1, src.Snapshot().StaleQuotes)
}

func TestRefreshKeepsDataOnFailure(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}, broken: map[string]bool{"/24h": true}}
	src, clock := newSource(t, api)
	ctx := context.Background()

	err := src.Refresh(ctx)
	var dsErr *helpers.DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.False(t, src.Snapshot().IsReady(), "24h stats are required")

	api.mu.Lock()
	api.broken["/24h"] = false
	api.broken["/latest"] = true
	api.mu.Unlock()

	*clock = clock.Add(LatestEvery)
	assert.Error(t, src.Refresh(ctx))

	snap := src.Snapshot()
	assert.True(t, snap.IsReady())
	assert.Equal(t, 1_450_000, snap.LatestQuotes()[4151].Low, "previous quotes survive a failed fetch")
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	_, err := decodeLatest([]byte(`{"data":`))
	assert.Error(t, err)
	_, err = decodeMapping([]byte(`{}`))
	assert.Error(t, err)
}

func TestDecodeDropsUnusableRows(t *testing.T) {
	quotes, err := decodeLatest([]byte(`{"data":{
		"1":{"high":120,"low":100},
		"2":{"high":0,"low":100},
		"3":{"high":120,"low":-5},
		"4":{"high":null,"low":100}}}`))
	require.NoError(t, err)
	assert.Equal(t, map[int]models.MQuote{1: {ID: 1, Low: 100, High: 120}}, quotes)

	stats, err := decodeInterval([]byte(`{"data":{
		"1":{"avgHighPrice":120,"avgLowPrice":100},
		"2":{"avgHighPrice":120,"avgLowPrice":-1},
		"3":{"avgHighPrice":null,"avgLowPrice":100}}}`))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 100, stats[1].AvgLowPrice)
}

func TestStartStop(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}, broken: map[string]bool{}}
	src, _ := newSource(t, api)

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, src.Start(ctx, &wg))
	assert.Error(t, src.Start(ctx, &wg), "second start is rejected")

	require.Eventually(t, func() bool { return src.Snapshot().IsReady() }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, src.Stop())
	wg.Wait()
}

func TestRunLoopReportsRefreshErrors(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}, broken: map[string]bool{"/latest": true}}
	src, _ := newSource(t, api)

	var mu sync.Mutex
	var reported []error
	src.OnRefreshError = func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	require.NoError(t, src.Start(context.Background(), &wg))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reported) > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, src.Stop())
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, reported[0].Error(), "/latest")
}
