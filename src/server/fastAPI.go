package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"market-flipper/src/analysis"
	"market-flipper/src/logger"
	"market-flipper/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// PairRegistry is the part of the pair-trading engine the API can mutate.
// -----------------------------------------------------------------------------

type PairRegistry interface {
	RegisterPair(a, b int) (models.MPairKey, error)
	UnregisterPair(a, b int) (models.MPairKey, error)
	Pairs() []models.MPairKey
}

// ScanStatsSource reports the last pair-discovery scan.
type ScanStatsSource interface {
	Stats() analysis.ScanStats
}

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Pairs     PairRegistry
	Discovery ScanStatsSource // optional; set before Start
	engine    *gin.Engine
	httpSrv   *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan *models.MLatestData // Strongly typed and Buffered Queue
	register    chan *Client
	unregister  chan *Client
	replies     chan clientReply
	done        chan struct{}
	hubOnce     sync.Once
	stopOnce    sync.Once

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewFastAPIServer wires the REST and WebSocket routes. metrics may be nil.
func NewFastAPIServer(cfg *models.MConfig, logger *logger.Logger, pairs PairRegistry, metrics http.Handler) *FastAPIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:     cfg,
		Logger:     logger,
		Pairs:      pairs,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan clientReply, 16),
		done:       make(chan struct{}),
		latestState: &models.MLatestData{
			Type:          "INITIAL",
			Spread:        []models.MSpreadCandidate{},
			MeanReversion: []models.MMeanReversionCandidate{},
			PairSignals:   []models.MPairSignal{},
			PairDiscovery: []models.MPairCandidate{},
		},
	}

	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes(metrics)
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes(metrics http.Handler) {
	api := s.engine.Group("/api")
	api.GET("/metrics", s.getMetrics)
	api.GET("/config", s.getConfig)
	api.GET("/health", s.getHealth)
	api.GET("/candidates/:engine", s.getCandidates)
	api.GET("/pairs", s.listPairs)
	api.POST("/pairs", s.addPair)
	api.DELETE("/pairs/:a/:b", s.removePair)
	api.GET("/discovery/stats", s.getDiscoveryStats)

	if metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.startHub()

	s.stateMutex.Lock()
	s.httpSrv = &http.Server{Addr: addr, Handler: s.engine}
	srv := s.httpSrv
	s.stateMutex.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) startHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// -----------------------------------------------------------------------------

// Stop shuts the HTTP server down and stops the hub.
func (s *FastAPIServer) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)

		s.stateMutex.RLock()
		srv := s.httpSrv
		s.stateMutex.RUnlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMetrics(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, s.latestState.Report)
}

// -----------------------------------------------------------------------------

// getConfig returns the trading parameters; credentials are never exposed.
func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tick_interval_ms": s.Config.TickIntervalMs,
		"filters":          s.Config.Filters,
		"risk":             s.Config.Risk,
		"strategies":       s.Config.Strategies,
		"engines":          models.AllEngines,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	connections := s.connections.Load()
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	tick := s.latestState.Report.Tick
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
		"tick":          tick,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getCandidates(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	switch c.Param("engine") {
	case "spread":
		c.JSON(http.StatusOK, s.latestState.Spread)
	case "mean-reversion":
		c.JSON(http.StatusOK, s.latestState.MeanReversion)
	case "pairs":
		c.JSON(http.StatusOK, s.latestState.PairSignals)
	case "discovery":
		c.JSON(http.StatusOK, s.latestState.PairDiscovery)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown engine %q", c.Param("engine"))})
	}
}

// -----------------------------------------------------------------------------

type pairRequest struct {
	A *int `json:"a" binding:"required"`
	B *int `json:"b" binding:"required"`
}

func (s *FastAPIServer) listPairs(c *gin.Context) {
	if s.Pairs == nil {
		c.JSON(http.StatusOK, []models.MPairKey{})
		return
	}
	c.JSON(http.StatusOK, s.Pairs.Pairs())
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) addPair(c *gin.Context) {
	if s.Pairs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pair trading is not available"})
		return
	}

	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := s.Pairs.RegisterPair(*req.A, *req.B)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.Logger.Info("Registered pair %s", key)
	c.JSON(http.StatusCreated, key)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) removePair(c *gin.Context) {
	if s.Pairs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pair trading is not available"})
		return
	}

	a, errA := strconv.Atoi(c.Param("a"))
	b, errB := strconv.Atoi(c.Param("b"))
	if errA != nil || errB != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pair ids must be integers"})
		return
	}

	key, err := s.Pairs.UnregisterPair(a, b)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.Logger.Info("Unregistered pair %s", key)
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getDiscoveryStats(c *gin.Context) {
	if s.Discovery == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pair discovery is not available"})
		return
	}
	c.JSON(http.StatusOK, s.Discovery.Stats())
}
