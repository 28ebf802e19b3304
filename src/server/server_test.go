package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"market-flipper/src/analysis"
	"market-flipper/src/logger"
	"market-flipper/src/models"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

type fakeRegistry struct {
	mu    sync.Mutex
	pairs map[models.MPairKey]struct{}
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{pairs: make(map[models.MPairKey]struct{})}
}

func (f *fakeRegistry) RegisterPair(a, b int) (models.MPairKey, error) {
	key, err := models.NewPairKey(a, b)
	if err != nil {
		return key, err
	}
	f.mu.Lock()
	f.pairs[key] = struct{}{}
	f.mu.Unlock()
	return key, nil
}

func (f *fakeRegistry) UnregisterPair(a, b int) (models.MPairKey, error) {
	key, err := models.NewPairKey(a, b)
	if err != nil {
		return key, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pairs[key]; !ok {
		return key, assert.AnError
	}
	delete(f.pairs, key)
	return key, nil
}

func (f *fakeRegistry) Pairs() []models.MPairKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MPairKey, 0, len(f.pairs))
	for k := range f.pairs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// -----------------------------------------------------------------------------

func newTestServer(t *testing.T) (*FastAPIServer, *fakeRegistry) {
	t.Helper()
	cfg := &models.MConfig{
		Host:           "127.0.0.1",
		Port:           0,
		LogLevel:       "ERROR",
		TickIntervalMs: 1000,
		Storage:        models.MStorageConfig{DBConnectionString: "postgres://secret"},
		Redis:          models.MRedisConfig{Password: "hunter2"},
	}
	reg := newFakeRegistry()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "flipper_ticks_total 1\n")
	})
	s := NewFastAPIServer(cfg, logger.NewLoggerWithWriter(nil, "test", io.Discard), reg, metrics)
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s, reg
}

func sampleState() *models.MLatestData {
	return &models.MLatestData{
		Spread: []models.MSpreadCandidate{
			{ItemID: 4151, Name: "Abyssal whip", NetProfitPerUnit: 50, PlannedQuantity: 10},
			{ItemID: 11802, Name: "Armadyl godsword", NetProfitPerUnit: 90, PlannedQuantity: 10},
		},
		MeanReversion: []models.MMeanReversionCandidate{{ItemID: 4151}},
		PairSignals:   []models.MPairSignal{{Key: models.MPairKey{A: 4151, B: 11802}}},
		PairDiscovery: []models.MPairCandidate{{Key: models.MPairKey{A: 1, B: 2}}},
		Timestamp:     1700000000,
		Report:        models.MTickReport{Tick: 7, FeedReady: true},
	}
}

func do(t *testing.T, s *FastAPIServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// -----------------------------------------------------------------------------

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetLatestState(sampleState())

	rec := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 7, health["tick"])

	rec = do(t, s, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.MTickReport
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.FeedReady)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flipper_ticks_total")
}

func TestConfigHidesCredentials(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Contains(t, rec.Body.String(), "pair_discovery")
}

func TestCandidateEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetLatestState(sampleState())

	rec := do(t, s, http.MethodGet, "/api/candidates/spread", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var spread []models.MSpreadCandidate
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &spread))
	require.Len(t, spread, 2)
	assert.Equal(t, 4151, spread[0].ItemID)
	assert.EqualValues(t, 500, spread[0].ExpectedProfit())
	assert.EqualValues(t, 900, spread[1].ExpectedProfit())

	for _, path := range []string{"mean-reversion", "pairs", "discovery"} {
		rec = do(t, s, http.MethodGet, "/api/candidates/"+path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = do(t, s, http.MethodGet, "/api/candidates/momentum", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmptyStateServesEmptyLists(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/candidates/pairs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestPairRegistryEndpoints(t *testing.T) {
	s, reg := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/pairs", `{"a": 11802, "b": 4151}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []models.MPairKey{{A: 4151, B: 11802}}, reg.Pairs())

	rec = do(t, s, http.MethodGet, "/api/pairs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var keys []models.MPairKey
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &keys))
	assert.Equal(t, []models.MPairKey{{A: 4151, B: 11802}}, keys)

	rec = do(t, s, http.MethodPost, "/api/pairs", `{"a": 5, "b": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/pairs", `{"a": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/pairs/x/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/pairs/4151/11802", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, reg.Pairs())

	rec = do(t, s, http.MethodDelete, "/api/pairs/4151/11802", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fixedStats analysis.ScanStats

func (f fixedStats) Stats() analysis.ScanStats { return analysis.ScanStats(f) }

func TestDiscoveryStats(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/discovery/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.Discovery = fixedStats{UniverseSize: 3, PairsScanned: 3, PairsKept: 1}
	rec = do(t, s, http.MethodGet, "/api/discovery/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats analysis.ScanStats
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.PairsScanned)
	assert.Equal(t, 1, stats.PairsKept)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/pairs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

// -----------------------------------------------------------------------------

func readState(t *testing.T, conn *websocket.Conn) *models.MLatestData {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var state models.MLatestData
	require.NoError(t, sonic.Unmarshal(raw, &state))
	return &state
}

func TestWebSocketBroadcastAndSubscribe(t *testing.T) {
	s, _ := newTestServer(t)
	s.startHub()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readState(t, conn)
	assert.Equal(t, "INITIAL", initial.Type)
	assert.Empty(t, initial.Spread)

	s.Broadcast(sampleState())
	update := readState(t, conn)
	assert.Equal(t, "UPDATE", update.Type)
	assert.Len(t, update.Spread, 2)
	assert.Len(t, update.PairSignals, 1)

	var cmd bytes.Buffer
	cmd.WriteString(`{"command": "subscribe", "engines": ["spread", "pair_trading"], "item_ids": [11802]}`)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, cmd.Bytes()))

	filtered := readState(t, conn)
	assert.Equal(t, "INITIAL", filtered.Type)
	require.Len(t, filtered.Spread, 1)
	assert.Equal(t, 11802, filtered.Spread[0].ItemID)
	assert.Len(t, filtered.PairSignals, 1)
	assert.Empty(t, filtered.MeanReversion)
	assert.Empty(t, filtered.PairDiscovery)

	s.Broadcast(sampleState())
	next := readState(t, conn)
	assert.Equal(t, "UPDATE", next.Type)
	assert.Len(t, next.Spread, 1)
	assert.Empty(t, next.MeanReversion)
}

// -----------------------------------------------------------------------------

func TestHealthCountsWebSocketClients(t *testing.T) {
	s, _ := newTestServer(t)
	s.startHub()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	connections := func() float64 {
		rec := do(t, s, http.MethodGet, "/api/health", "")
		var health map[string]interface{}
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &health))
		return health["connections"].(float64)
	}
	assert.Zero(t, connections())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readState(t, conn)
	assert.EqualValues(t, 1, connections())

	conn.Close()
	require.Eventually(t, func() bool { return connections() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestSubscriptionFilterLeavesStateUntouched(t *testing.T) {
	state := sampleState()
	sub := newSubscription(models.MSubscribeCommand{Engines: []string{models.EngineMeanReversion}})

	out := sub.apply(state)
	assert.Empty(t, out.Spread)
	assert.Len(t, out.MeanReversion, 1)
	assert.Len(t, state.Spread, 2)

	var none *subscription
	assert.True(t, none.wantsEngine(models.EngineSpread))
	assert.True(t, none.wantsItem(1))
}
