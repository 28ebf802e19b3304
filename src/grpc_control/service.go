package grpc_control

import (
	"net"
	"sync"

	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var _ interfaces.IEngineObserver = (*HealthService)(nil)

// OverallService is the empty service name generic health checkers query.
const OverallService = ""

// -----------------------------------------------------------------------------
// HealthService reports per-engine serving status over grpc.health.v1.
// -----------------------------------------------------------------------------

type HealthService struct {
	Health *health.Server
	Logger *logger.Logger

	enabled map[string]bool
	mu      sync.Mutex
	server  *grpc.Server
}

// -----------------------------------------------------------------------------

// NewHealthService starts every service as NOT_SERVING until the first ready tick.
func NewHealthService(cfg *models.MConfig, log *logger.Logger) *HealthService {
	s := &HealthService{
		Health: health.NewServer(),
		Logger: log,
		enabled: map[string]bool{
			models.EngineSpread:        cfg.Strategies.Spread.Enable,
			models.EngineMeanReversion: cfg.Strategies.MeanReversion.Enable,
			models.EnginePairTrading:   cfg.Strategies.PairsTrading.Enable,
			models.EnginePairDiscovery: cfg.Strategies.Discovery.Enable,
		},
	}

	s.Health.SetServingStatus(OverallService, healthpb.HealthCheckResponse_NOT_SERVING)
	for _, name := range models.AllEngines {
		s.Health.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return s
}

// -----------------------------------------------------------------------------
// IEngineObserver
// -----------------------------------------------------------------------------

// ObserveEngine is a no-op; status needs the feed state carried by the tick.
func (s *HealthService) ObserveEngine(models.MEngineReport) {}

// ObserveTick marks engines SERVING when the feed is ready and they ran cleanly.
func (s *HealthService) ObserveTick(r models.MTickReport) {
	overall := healthpb.HealthCheckResponse_NOT_SERVING
	if r.FeedReady {
		overall = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(OverallService, overall)

	for _, er := range r.Engines {
		status := healthpb.HealthCheckResponse_SERVING
		if !r.FeedReady || !s.enabled[er.Engine] || er.Error != "" {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		s.Health.SetServingStatus(er.Engine, status)
	}
}

// -----------------------------------------------------------------------------
// Server lifecycle
// -----------------------------------------------------------------------------

// Register attaches the health and reflection services to an existing server.
func (s *HealthService) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.Health)
	reflection.Register(srv)
}

// -----------------------------------------------------------------------------

// Serve blocks until Stop is called or the listener fails.
func (s *HealthService) Serve(lis net.Listener) error {
	srv := grpc.NewServer()
	s.Register(srv)

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.Logger.Info("Starting gRPC health server on %s", lis.Addr())
	return srv.Serve(lis)
}

// -----------------------------------------------------------------------------

func (s *HealthService) Stop() {
	s.Health.Shutdown()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		srv.GracefulStop()
	}
}
